package ooc

import (
	"strconv"
	"strings"
	"unicode"

	"courtroom.ai/internal/protocol"
)

type Kind int

const (
	String Kind = iota
	Integer
)

// Arg declares one positional command argument. A Multiword argument
// consumes the rest of the input and must come last.
type Arg struct {
	Name      string
	Kind      Kind
	Optional  bool
	Multiword bool
}

type Schema []Arg

// Values holds parsed arguments by name. Missing optional arguments are
// absent, not empty.
type Values struct {
	strs map[string]string
	ints map[string]int
}

func (v Values) Has(name string) bool {
	_, ok := v.strs[name]
	return ok
}

func (v Values) Str(name string) string { return v.strs[name] }
func (v Values) Int(name string) int    { return v.ints[name] }

// Parse consumes input according to s. It holds no state between calls.
func (s Schema) Parse(input string) (Values, error) {
	vals := Values{strs: map[string]string{}, ints: map[string]int{}}
	rest := strings.TrimSpace(input)
	if len(s) == 0 {
		if rest != "" {
			return vals, protocol.ArgumentError("This command takes no arguments.")
		}
		return vals, nil
	}
	for _, a := range s {
		if rest == "" {
			if !a.Optional {
				return vals, protocol.ArgumentError("Not enough arguments.")
			}
			continue
		}
		var word string
		if a.Multiword {
			word, rest = rest, ""
		} else {
			word, rest = nextWord(rest)
		}
		if a.Kind == Integer {
			n, err := strconv.Atoi(word)
			if err != nil {
				return vals, protocol.ArgumentError("%s must be an integer.", a.Name)
			}
			vals.ints[a.Name] = n
		}
		vals.strs[a.Name] = word
	}
	if rest != "" {
		return vals, protocol.ArgumentError("Too many arguments.")
	}
	return vals, nil
}

func nextWord(s string) (word, rest string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
