package protocol

import "strconv"

// ArgKind is the expected type of one positional argument.
type ArgKind int

const (
	// Str must be non-empty.
	Str ArgKind = iota
	// StrOrEmpty accepts any string.
	StrOrEmpty
	// Int must parse as a base-10 integer.
	Int
	// Bool must parse as the integer 0 or 1.
	Bool
)

func (k ArgKind) String() string {
	switch k {
	case Str:
		return "str"
	case StrOrEmpty:
		return "str_or_empty"
	case Int:
		return "int"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Shape declares the arguments a command accepts. Any skips arity and type
// checks entirely; NeedsAuth requires a selected character.
type Shape struct {
	Kinds     []ArgKind
	NeedsAuth bool
	Any       bool
}

func NewShape(needsAuth bool, kinds ...ArgKind) Shape {
	return Shape{Kinds: kinds, NeedsAuth: needsAuth}
}

// Args holds validated arguments. Ints are populated for Int and Bool
// positions and are zero elsewhere.
type Args struct {
	Raw  []string
	Ints []int
}

func (a Args) Str(i int) string { return a.Raw[i] }
func (a Args) Int(i int) int    { return a.Ints[i] }
func (a Args) Bool(i int) bool  { return a.Ints[i] == 1 }
func (a Args) Len() int         { return len(a.Raw) }

// Validate checks raw against the shape. Any failure returns ok=false and
// the frame is expected to be dropped without a reply.
func (s Shape) Validate(raw []string, authed bool) (Args, bool) {
	if s.NeedsAuth && !authed {
		return Args{}, false
	}
	if s.Any {
		return Args{Raw: raw, Ints: make([]int, len(raw))}, true
	}
	if len(raw) != len(s.Kinds) {
		return Args{}, false
	}
	ints := make([]int, len(raw))
	for i, kind := range s.Kinds {
		v := raw[i]
		switch kind {
		case Str:
			if v == "" {
				return Args{}, false
			}
		case StrOrEmpty:
		case Int, Bool:
			n, err := strconv.Atoi(v)
			if err != nil {
				return Args{}, false
			}
			if kind == Bool && n != 0 && n != 1 {
				return Args{}, false
			}
			ints[i] = n
		}
	}
	return Args{Raw: raw, Ints: ints}, true
}
