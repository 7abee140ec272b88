// Package options models named build toggles and the effective option set
// computed for one formula instance during an install run.
package options

import (
	"sort"
	"strings"
)

// Option is a named boolean build toggle declared by a formula.
type Option struct {
	// Name is the bare option name, without the leading dashes
	Name string

	// Description is the human-readable explanation shown in formula info
	Description string
}

// Flag returns the command-line form of the option.
func (o Option) Flag() string {
	return "--" + o.Name
}

// Set is an unordered, deduplicated collection of options.
type Set struct {
	opts map[string]Option
}

// NewSet creates a Set from the given options
func NewSet(opts ...Option) *Set {
	s := &Set{opts: make(map[string]Option, len(opts))}
	for _, o := range opts {
		s.opts[o.Name] = o
	}
	return s
}

// FromNames creates a Set from bare option names
func FromNames(names ...string) *Set {
	s := &Set{opts: make(map[string]Option, len(names))}
	for _, n := range names {
		n = strings.TrimPrefix(n, "--")
		if n == "" {
			continue
		}
		s.opts[n] = Option{Name: n}
	}
	return s
}

// Add inserts an option, replacing any previous option of the same name
func (s *Set) Add(o Option) {
	s.opts[o.Name] = o
}

// Remove deletes the option with the given name, if present
func (s *Set) Remove(name string) {
	delete(s.opts, strings.TrimPrefix(name, "--"))
}

// Include reports whether an option with the given name is present.
// The name may carry leading dashes.
func (s *Set) Include(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.opts[strings.TrimPrefix(name, "--")]
	return ok
}

// Empty reports whether the set holds no options
func (s *Set) Empty() bool {
	return s == nil || len(s.opts) == 0
}

// Len returns the number of options in the set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.opts)
}

// Union returns a new set holding the options of both sets
func (s *Set) Union(other *Set) *Set {
	out := NewSet()
	if s != nil {
		for _, o := range s.opts {
			out.Add(o)
		}
	}
	if other != nil {
		for _, o := range other.opts {
			out.Add(o)
		}
	}
	return out
}

// Intersection returns the options present in both sets
func (s *Set) Intersection(other *Set) *Set {
	out := NewSet()
	if s == nil || other == nil {
		return out
	}
	for name, o := range s.opts {
		if other.Include(name) {
			out.Add(o)
		}
	}
	return out
}

// Difference returns the options present in s but not in other
func (s *Set) Difference(other *Set) *Set {
	out := NewSet()
	if s == nil {
		return out
	}
	for name, o := range s.opts {
		if !other.Include(name) {
			out.Add(o)
		}
	}
	return out
}

// Names returns the sorted option names
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.opts))
	for name := range s.opts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flags returns the sorted command-line form of all options
func (s *Set) Flags() []string {
	names := s.Names()
	flags := make([]string, len(names))
	for i, n := range names {
		flags[i] = "--" + n
	}
	return flags
}
