// Package codec reads and writes DTO documents in the formats the CLI
// accepts for import and export.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Codec encodes and decodes one serialization format.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
	Format() string
}

// Formats lists the registered format names.
func Formats() []string { return []string{"json", "yaml"} }

// ForFormat returns the codec named format ("yml" is accepted for yaml).
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

// ForPath picks a codec from the file extension.
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot infer format of %s: no extension", path)
	}
	return ForFormat(ext)
}
