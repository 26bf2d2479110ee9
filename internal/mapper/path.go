package mapper

import "strings"

// Segment is one named step of a property path.
type Segment struct {
	Name string
	Get  func(any) (any, bool)
}

// Seg builds a typed path step. A nil result counts as absent.
func Seg[In, Out any](name string, fn func(In) (Out, bool)) Segment {
	return Segment{
		Name: name,
		Get: func(v any) (any, bool) {
			in, ok := v.(In)
			if !ok {
				return nil, false
			}
			out, ok := fn(in)
			if !ok || isNil(out) {
				return nil, false
			}
			return out, true
		},
	}
}

// missingSegment is what a Path accessor returns alongside false: the
// dotted path up to and including the first absent segment.
type missingSegment string

// Path composes segments into a property mapping labelled with their dotted
// names. When a segment is absent ExtractValues names the path up to that
// segment rather than the full path.
func Path[E any](segs ...Segment) PropertyMapping[E] {
	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = s.Name
	}

	return PropertyMapping[E]{
		Path: strings.Join(names, "."),
		Get: func(e E) (any, bool) {
			var cur any = e
			for i, s := range segs {
				next, ok := s.Get(cur)
				if !ok {
					return missingSegment(strings.Join(names[:i+1], ".")), false
				}
				cur = next
			}
			return cur, true
		},
	}
}
