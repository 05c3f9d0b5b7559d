package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// FunctionRef is a function name together with the number of arguments it
// was called with.
type FunctionRef struct {
	Name  string `json:"name"`
	Arity int    `json:"arity"`
}

func (f FunctionRef) String() string {
	return f.Name + "/" + strconv.Itoa(f.Arity)
}

// QueryMetadata summarizes the fields, operators and functions an
// expression references. All sets are deduplicated and sorted, so equal
// expressions yield byte-identical metadata. The zero value describes an
// expression that references nothing.
type QueryMetadata struct {
	fields     []string
	compareOps []CompareOp
	logicalOps []LogicalOp
	functions  []FunctionRef
}

// Extract walks expr once and collects its metadata. The expression is not
// modified.
func Extract(expr Expression) QueryMetadata {
	fields := make(map[string]struct{})
	compareOps := make(map[CompareOp]struct{})
	logicalOps := make(map[LogicalOp]struct{})
	functions := make(map[FunctionRef]struct{})

	Walk(expr, func(node Expression) bool {
		switch n := node.(type) {
		case *FieldRef:
			fields[n.Name] = struct{}{}
		case *Comparison:
			compareOps[n.Op] = struct{}{}
		case *Logical:
			logicalOps[n.Op] = struct{}{}
		case *FunctionCall:
			functions[FunctionRef{Name: n.Name, Arity: len(n.Args)}] = struct{}{}
		}
		return true
	})

	md := QueryMetadata{}
	for name := range fields {
		md.fields = append(md.fields, name)
	}
	sort.Strings(md.fields)

	for op := range compareOps {
		md.compareOps = append(md.compareOps, op)
	}
	sort.Slice(md.compareOps, func(i, j int) bool { return md.compareOps[i] < md.compareOps[j] })

	for op := range logicalOps {
		md.logicalOps = append(md.logicalOps, op)
	}
	sort.Slice(md.logicalOps, func(i, j int) bool { return md.logicalOps[i] < md.logicalOps[j] })

	for fn := range functions {
		md.functions = append(md.functions, fn)
	}
	sort.Slice(md.functions, func(i, j int) bool {
		if md.functions[i].Name != md.functions[j].Name {
			return md.functions[i].Name < md.functions[j].Name
		}
		return md.functions[i].Arity < md.functions[j].Arity
	})

	return md
}

// Fields returns the referenced field names in sorted order.
func (m QueryMetadata) Fields() []string {
	return append([]string(nil), m.fields...)
}

// CompareOps returns the comparison operators used, in declaration order.
func (m QueryMetadata) CompareOps() []CompareOp {
	return append([]CompareOp(nil), m.compareOps...)
}

// LogicalOps returns the logical operators used, in declaration order.
func (m QueryMetadata) LogicalOps() []LogicalOp {
	return append([]LogicalOp(nil), m.logicalOps...)
}

// Functions returns the distinct (name, arity) pairs called.
func (m QueryMetadata) Functions() []FunctionRef {
	return append([]FunctionRef(nil), m.functions...)
}

// Operators returns the names of every operator used, comparison operators
// first, e.g. ["GreaterThan", "Contains", "And"].
func (m QueryMetadata) Operators() []string {
	out := make([]string, 0, len(m.compareOps)+len(m.logicalOps))
	for _, op := range m.compareOps {
		out = append(out, op.Name())
	}
	for _, op := range m.logicalOps {
		out = append(out, op.Name())
	}
	return out
}

// HasField reports whether name is referenced.
func (m QueryMetadata) HasField(name string) bool {
	i := sort.SearchStrings(m.fields, name)
	return i < len(m.fields) && m.fields[i] == name
}

// HasFunction reports whether a function is called with any arity. The
// comparison is case-insensitive.
func (m QueryMetadata) HasFunction(name string) bool {
	for _, fn := range m.functions {
		if strings.EqualFold(fn.Name, name) {
			return true
		}
	}
	return false
}

// HasCompareOp reports whether op is used.
func (m QueryMetadata) HasCompareOp(op CompareOp) bool {
	for _, o := range m.compareOps {
		if o == op {
			return true
		}
	}
	return false
}

// HasLogicalOp reports whether op is used.
func (m QueryMetadata) HasLogicalOp(op LogicalOp) bool {
	for _, o := range m.logicalOps {
		if o == op {
			return true
		}
	}
	return false
}

// Equal reports whether m and o describe the same sets.
func (m QueryMetadata) Equal(o QueryMetadata) bool {
	return m.canonical() == o.canonical()
}

// Fingerprint is a 64-bit xxhash of the canonical encoding. Equal metadata
// always has the same fingerprint.
func (m QueryMetadata) Fingerprint() uint64 {
	return xxhash.Sum64String(m.canonical())
}

// canonical encodes the metadata as text with unambiguous separators.
func (m QueryMetadata) canonical() string {
	var b strings.Builder
	b.WriteString("f")
	for _, name := range m.fields {
		b.WriteByte(0)
		b.WriteString(name)
	}
	b.WriteString("\x01c")
	for _, op := range m.compareOps {
		b.WriteByte(0)
		b.WriteString(strconv.Itoa(int(op)))
	}
	b.WriteString("\x01l")
	for _, op := range m.logicalOps {
		b.WriteByte(0)
		b.WriteString(strconv.Itoa(int(op)))
	}
	b.WriteString("\x01n")
	for _, fn := range m.functions {
		b.WriteByte(0)
		b.WriteString(fn.Name)
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(fn.Arity))
	}
	return b.String()
}

func (m QueryMetadata) String() string {
	fns := make([]string, len(m.functions))
	for i, fn := range m.functions {
		fns[i] = fn.String()
	}
	return fmt.Sprintf("fields=[%s] operators=[%s] functions=[%s]",
		strings.Join(m.fields, " "),
		strings.Join(m.Operators(), " "),
		strings.Join(fns, " "))
}

type metadataJSON struct {
	Fields      []string      `json:"fields"`
	CompareOps  []string      `json:"compare_ops"`
	LogicalOps  []string      `json:"logical_ops"`
	Functions   []FunctionRef `json:"functions"`
	Fingerprint string        `json:"fingerprint"`
}

// MarshalJSON encodes the metadata with operator names and a hex
// fingerprint. Empty sets encode as empty arrays.
func (m QueryMetadata) MarshalJSON() ([]byte, error) {
	out := metadataJSON{
		Fields:      m.Fields(),
		CompareOps:  make([]string, len(m.compareOps)),
		LogicalOps:  make([]string, len(m.logicalOps)),
		Functions:   m.Functions(),
		Fingerprint: fmt.Sprintf("%016x", m.Fingerprint()),
	}
	if out.Fields == nil {
		out.Fields = []string{}
	}
	if out.Functions == nil {
		out.Functions = []FunctionRef{}
	}
	for i, op := range m.compareOps {
		out.CompareOps[i] = op.Name()
	}
	for i, op := range m.logicalOps {
		out.LogicalOps[i] = op.Name()
	}
	return json.Marshal(out)
}
