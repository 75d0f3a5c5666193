package vm

import "strings"

// Path is a typed sequence of dotted-name elements, with an absolute/relative
// flag. "/obj/item/weapon" is absolute; "item/weapon" (no leading slash) is
// relative to whatever scope resolves it.
type Path struct {
	Elements []string
	Absolute bool
}

// NewPath parses a slash-separated string into a Path.
func NewPath(s string) Path {
	absolute := strings.HasPrefix(s, "/")
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimSuffix(s, "/")
	var elems []string
	if s != "" {
		elems = strings.Split(s, "/")
	}
	return Path{Elements: elems, Absolute: absolute}
}

// String renders the path back to slashed form.
func (p Path) String() string {
	joined := strings.Join(p.Elements, "/")
	if p.Absolute {
		return "/" + joined
	}
	return joined
}

// Equal reports path equality: same elements, same absoluteness.
func (p Path) Equal(other Path) bool {
	if p.Absolute != other.Absolute || len(p.Elements) != len(other.Elements) {
		return false
	}
	for i := range p.Elements {
		if p.Elements[i] != other.Elements[i] {
			return false
		}
	}
	return true
}

// After returns the sub-path following the first occurrence of marker, and
// whether marker was found. Used to pull "name" out of a "T/proc/name"
// style proc-reference path.
func (p Path) After(marker string) (Path, bool) {
	for i, e := range p.Elements {
		if e == marker {
			return Path{Elements: append([]string(nil), p.Elements[i+1:]...), Absolute: false}, true
		}
	}
	return Path{}, false
}

// IsEmpty reports whether the path has no elements.
func (p Path) IsEmpty() bool {
	return len(p.Elements) == 0
}

// IsRoot reports whether the path is absolute and has at least one
// element. It does not tell a type path from a type/var-name path.
func (p Path) IsRoot() bool {
	return p.Absolute && len(p.Elements) > 0
}
