package mapper

// Reader pulls typed value objects out of a ValueObjects map, keeping the
// first failure so entity constructors can read every field and check once.
type Reader struct {
	vos ValueObjects
	err error
}

// NewReader wraps vos.
func NewReader(vos ValueObjects) *Reader {
	return &Reader{vos: vos}
}

// Read returns the value object under key, or the zero T after a failure.
func Read[T any](r *Reader, key string) T {
	var zero T
	if r.err != nil {
		return zero
	}
	v, err := Get[T](r.vos, key)
	if err != nil {
		r.err = err
		return zero
	}
	return v
}

// Err returns the first failure encountered.
func (r *Reader) Err() error { return r.err }
