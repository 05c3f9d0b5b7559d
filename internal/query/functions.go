package query

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unbounded marks a variadic FunctionSpec.MaxArgs.
const Unbounded = -1

// FunctionSpec describes a function the parser recognizes.
type FunctionSpec struct {
	Name    string `yaml:"name" json:"name"`
	MinArgs int    `yaml:"min_args" json:"min_args"`
	// MaxArgs is Unbounded for variadic functions.
	MaxArgs int `yaml:"max_args" json:"max_args"`
	// Aggregate marks functions computed over many records (SUM, AVG, ...).
	Aggregate   bool   `yaml:"aggregate,omitempty" json:"aggregate,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// AcceptsArgs reports whether a call with n arguments is within range.
func (s FunctionSpec) AcceptsArgs(n int) bool {
	if n < s.MinArgs {
		return false
	}
	return s.MaxArgs == Unbounded || n <= s.MaxArgs
}

// ArityText describes the accepted argument count, e.g. "exactly 1 argument".
func (s FunctionSpec) ArityText() string {
	switch {
	case s.MaxArgs == Unbounded:
		return fmt.Sprintf("at least %d %s", s.MinArgs, plural(s.MinArgs, "argument"))
	case s.MinArgs == s.MaxArgs:
		return fmt.Sprintf("exactly %d %s", s.MinArgs, plural(s.MinArgs, "argument"))
	}
	return fmt.Sprintf("%d to %d arguments", s.MinArgs, s.MaxArgs)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// FunctionCatalog is an immutable set of FunctionSpecs keyed by
// case-insensitive name. Use Extend to derive a larger catalog.
type FunctionCatalog struct {
	specs map[string]FunctionSpec
}

// NewFunctionCatalog builds a catalog from specs. Names must be valid
// identifiers that are not reserved keywords.
func NewFunctionCatalog(specs ...FunctionSpec) (*FunctionCatalog, error) {
	return (&FunctionCatalog{}).Extend(specs...)
}

// Extend returns a new catalog containing c's functions plus specs. A spec
// with an existing name replaces the old definition.
func (c *FunctionCatalog) Extend(specs ...FunctionSpec) (*FunctionCatalog, error) {
	next := &FunctionCatalog{specs: make(map[string]FunctionSpec, c.Len()+len(specs))}
	if c != nil {
		for k, v := range c.specs {
			next.specs[k] = v
		}
	}
	for _, spec := range specs {
		if !IsIdentifier(spec.Name) {
			return nil, fmt.Errorf("function name %q is not a valid identifier", spec.Name)
		}
		if spec.MinArgs < 0 || (spec.MaxArgs != Unbounded && spec.MaxArgs < spec.MinArgs) {
			return nil, fmt.Errorf("function %s: invalid argument range %d..%d", spec.Name, spec.MinArgs, spec.MaxArgs)
		}
		next.specs[strings.ToLower(spec.Name)] = spec
	}
	return next, nil
}

// Lookup finds a function by case-insensitive name.
func (c *FunctionCatalog) Lookup(name string) (FunctionSpec, bool) {
	if c == nil {
		return FunctionSpec{}, false
	}
	spec, ok := c.specs[strings.ToLower(name)]
	return spec, ok
}

// Len returns the number of functions.
func (c *FunctionCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.specs)
}

// Specs returns all functions sorted by name.
func (c *FunctionCatalog) Specs() []FunctionSpec {
	if c == nil {
		return nil
	}
	out := make([]FunctionSpec, 0, len(c.specs))
	for _, spec := range c.specs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

type catalogFile struct {
	Functions []FunctionSpec `yaml:"functions"`
}

// LoadFunctionCatalog reads a YAML document of the form
//
//	functions:
//	  - name: distance
//	    min_args: 2
//	    max_args: 2
//
// and returns base extended with its functions. A max_args of -1 makes the
// function variadic.
func LoadFunctionCatalog(r io.Reader, base *FunctionCatalog) (*FunctionCatalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode function catalog: %w", err)
	}
	return base.Extend(file.Functions...)
}

var defaultCatalog = mustFunctionCatalog(
	FunctionSpec{Name: "SUM", MinArgs: 1, MaxArgs: 1, Aggregate: true, Description: "sum of a column"},
	FunctionSpec{Name: "COUNT", MinArgs: 1, MaxArgs: 1, Aggregate: true, Description: "number of values"},
	FunctionSpec{Name: "AVG", MinArgs: 1, MaxArgs: 1, Aggregate: true, Description: "arithmetic mean"},
	FunctionSpec{Name: "MEDIAN", MinArgs: 1, MaxArgs: 1, Aggregate: true, Description: "median value"},
	FunctionSpec{Name: "VARIANCE", MinArgs: 1, MaxArgs: 1, Aggregate: true, Description: "population variance"},
	FunctionSpec{Name: "STDDEV", MinArgs: 1, MaxArgs: 1, Aggregate: true, Description: "standard deviation"},
	FunctionSpec{Name: "MIN", MinArgs: 1, MaxArgs: 1, Aggregate: true, Description: "smallest value"},
	FunctionSpec{Name: "MAX", MinArgs: 1, MaxArgs: 1, Aggregate: true, Description: "largest value"},
	FunctionSpec{Name: "LOWER", MinArgs: 1, MaxArgs: 1, Description: "lower-case a string"},
	FunctionSpec{Name: "UPPER", MinArgs: 1, MaxArgs: 1, Description: "upper-case a string"},
	FunctionSpec{Name: "LENGTH", MinArgs: 1, MaxArgs: 1, Description: "string length"},
	FunctionSpec{Name: "TRIM", MinArgs: 1, MaxArgs: 1, Description: "strip surrounding whitespace"},
	FunctionSpec{Name: "ABS", MinArgs: 1, MaxArgs: 1, Description: "absolute value"},
	FunctionSpec{Name: "ROUND", MinArgs: 1, MaxArgs: 2, Description: "round to n decimal places"},
	FunctionSpec{Name: "CONCAT", MinArgs: 2, MaxArgs: Unbounded, Description: "concatenate strings"},
	FunctionSpec{Name: "COALESCE", MinArgs: 1, MaxArgs: Unbounded, Description: "first non-null argument"},
	FunctionSpec{Name: "NOW", MinArgs: 0, MaxArgs: 0, Description: "current timestamp"},
)

func mustFunctionCatalog(specs ...FunctionSpec) *FunctionCatalog {
	c, err := NewFunctionCatalog(specs...)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultFunctions returns the built-in catalog.
func DefaultFunctions() *FunctionCatalog {
	return defaultCatalog
}
