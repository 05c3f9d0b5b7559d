package query

import (
	"sort"
	"strings"
)

// CompareOp identifies a comparison operator.
type CompareOp int

// Comparison operators. New operators are appended to compareOpTable; the
// numeric values are part of the wire format and must not be reordered.
const (
	Equal CompareOp = iota + 1
	NotEqual
	LessThan
	LessOrEqual
	GreaterThan
	GreaterOrEqual
	Contains
	StartsWith
	EndsWith
	In
	NotIn
	Is
	IsNot
)

// LogicalOp identifies a logical connective.
type LogicalOp int

// Logical operators. Not is unary, And and Or are binary.
const (
	And LogicalOp = iota + 1
	Or
	Not
)

// compareOpDef describes one comparison operator. Text is the canonical
// rendering; Aliases are accepted when lexing but never rendered.
type compareOpDef struct {
	Op      CompareOp
	Name    string
	Text    string
	Aliases []string
	// ListOperand operators take a parenthesized literal list on the right.
	ListOperand bool
	// StateOperand operators only accept NULL, TRUE or FALSE on the right.
	StateOperand bool
}

var compareOpTable = []compareOpDef{
	{Op: Equal, Name: "Equal", Text: "="},
	{Op: NotEqual, Name: "NotEqual", Text: "!=", Aliases: []string{"<>"}},
	{Op: LessThan, Name: "LessThan", Text: "<"},
	{Op: LessOrEqual, Name: "LessOrEqual", Text: "<="},
	{Op: GreaterThan, Name: "GreaterThan", Text: ">"},
	{Op: GreaterOrEqual, Name: "GreaterOrEqual", Text: ">="},
	{Op: Contains, Name: "Contains", Text: "CONTAINS"},
	{Op: StartsWith, Name: "StartsWith", Text: "STARTSWITH"},
	{Op: EndsWith, Name: "EndsWith", Text: "ENDSWITH"},
	{Op: In, Name: "In", Text: "IN", ListOperand: true},
	{Op: NotIn, Name: "NotIn", Text: "NOT IN", ListOperand: true},
	{Op: Is, Name: "Is", Text: "IS", StateOperand: true},
	{Op: IsNot, Name: "IsNot", Text: "IS NOT", StateOperand: true},
}

type logicalOpDef struct {
	Op   LogicalOp
	Name string
	Text string
	// Precedence orders the binary connectives; higher binds tighter.
	Precedence int
}

var logicalOpTable = []logicalOpDef{
	{Op: And, Name: "And", Text: "AND", Precedence: 2},
	{Op: Or, Name: "Or", Text: "OR", Precedence: 1},
	{Op: Not, Name: "Not", Text: "NOT", Precedence: 3},
}

// operatorIndex holds lookup tables derived from the operator tables. It is
// built during package initialization and never written afterwards, so
// concurrent parses read it without locking.
type operatorIndex struct {
	compareByText map[string]CompareOp
	compareByName map[string]CompareOp
	compareDefs   map[CompareOp]*compareOpDef
	logicalByText map[string]LogicalOp
	logicalByName map[string]LogicalOp
	logicalDefs   map[LogicalOp]*logicalOpDef
	// keywords are the words used by comparison operators (IN, IS, ...).
	keywords map[string]bool
	// symbols are sorted longest first so the lexer can match greedily.
	symbols []string
	// maxTokens is the largest number of tokens an operator spans.
	maxTokens int
}

var ops = buildOperatorIndex()

func buildOperatorIndex() *operatorIndex {
	idx := &operatorIndex{
		compareByText: make(map[string]CompareOp, len(compareOpTable)*2),
		compareByName: make(map[string]CompareOp, len(compareOpTable)),
		compareDefs:   make(map[CompareOp]*compareOpDef, len(compareOpTable)),
		logicalByText: make(map[string]LogicalOp, len(logicalOpTable)),
		logicalByName: make(map[string]LogicalOp, len(logicalOpTable)),
		logicalDefs:   make(map[LogicalOp]*logicalOpDef, len(logicalOpTable)),
		keywords:      make(map[string]bool),
	}

	for i := range compareOpTable {
		def := &compareOpTable[i]
		idx.compareDefs[def.Op] = def
		idx.compareByName[strings.ToLower(def.Name)] = def.Op
		for _, text := range append([]string{def.Text}, def.Aliases...) {
			idx.compareByText[text] = def.Op
			idx.registerText(text)
		}
	}

	for i := range logicalOpTable {
		def := &logicalOpTable[i]
		idx.logicalDefs[def.Op] = def
		idx.logicalByText[def.Text] = def.Op
		idx.logicalByName[strings.ToLower(def.Name)] = def.Op
	}

	sort.Slice(idx.symbols, func(i, j int) bool {
		if len(idx.symbols[i]) != len(idx.symbols[j]) {
			return len(idx.symbols[i]) > len(idx.symbols[j])
		}
		return idx.symbols[i] < idx.symbols[j]
	})
	return idx
}

// registerText splits an operator rendering into the words or symbols the
// lexer has to recognize.
func (idx *operatorIndex) registerText(text string) {
	parts := strings.Fields(text)
	if len(parts) > idx.maxTokens {
		idx.maxTokens = len(parts)
	}
	for _, part := range parts {
		if isWordStart(rune(part[0])) {
			idx.keywords[part] = true
			continue
		}
		if !containsString(idx.symbols, part) {
			idx.symbols = append(idx.symbols, part)
		}
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// String returns the canonical rendering of the operator.
func (op CompareOp) String() string {
	if def, ok := ops.compareDefs[op]; ok {
		return def.Text
	}
	return "CompareOp(?)"
}

// Name returns the operator's identifier, e.g. "GreaterThan".
func (op CompareOp) Name() string {
	if def, ok := ops.compareDefs[op]; ok {
		return def.Name
	}
	return ""
}

// Valid reports whether op is a known comparison operator.
func (op CompareOp) Valid() bool {
	_, ok := ops.compareDefs[op]
	return ok
}

// TakesList reports whether the operator's right operand is a literal list.
func (op CompareOp) TakesList() bool {
	def, ok := ops.compareDefs[op]
	return ok && def.ListOperand
}

// TakesState reports whether the operator's right operand is restricted to
// NULL, TRUE or FALSE.
func (op CompareOp) TakesState() bool {
	def, ok := ops.compareDefs[op]
	return ok && def.StateOperand
}

// String returns the canonical rendering of the operator.
func (op LogicalOp) String() string {
	if def, ok := ops.logicalDefs[op]; ok {
		return def.Text
	}
	return "LogicalOp(?)"
}

// Name returns the operator's identifier, e.g. "And".
func (op LogicalOp) Name() string {
	if def, ok := ops.logicalDefs[op]; ok {
		return def.Name
	}
	return ""
}

// Valid reports whether op is a known logical operator.
func (op LogicalOp) Valid() bool {
	_, ok := ops.logicalDefs[op]
	return ok
}

// Unary reports whether the operator takes a single operand.
func (op LogicalOp) Unary() bool {
	return op == Not
}

func (op LogicalOp) precedence() int {
	if def, ok := ops.logicalDefs[op]; ok {
		return def.Precedence
	}
	return 0
}

// LookupCompareOp resolves a canonical rendering or alias ("<>", "NOT IN")
// to its operator. Keyword lookups are case-insensitive.
func LookupCompareOp(text string) (CompareOp, bool) {
	op, ok := ops.compareByText[normalizeOperatorText(text)]
	return op, ok
}

// LookupLogicalOp resolves "AND", "OR" or "NOT" case-insensitively.
func LookupLogicalOp(text string) (LogicalOp, bool) {
	op, ok := ops.logicalByText[strings.ToUpper(strings.TrimSpace(text))]
	return op, ok
}

// CompareOpByName resolves an operator identifier such as "GreaterThan".
func CompareOpByName(name string) (CompareOp, bool) {
	op, ok := ops.compareByName[strings.ToLower(name)]
	return op, ok
}

// LogicalOpByName resolves an operator identifier such as "And".
func LogicalOpByName(name string) (LogicalOp, bool) {
	op, ok := ops.logicalByName[strings.ToLower(name)]
	return op, ok
}

// CompareOps lists every comparison operator in table order.
func CompareOps() []CompareOp {
	ops := make([]CompareOp, len(compareOpTable))
	for i, def := range compareOpTable {
		ops[i] = def.Op
	}
	return ops
}

// LogicalOps lists every logical operator in table order.
func LogicalOps() []LogicalOp {
	ops := make([]LogicalOp, len(logicalOpTable))
	for i, def := range logicalOpTable {
		ops[i] = def.Op
	}
	return ops
}

func normalizeOperatorText(text string) string {
	return strings.ToUpper(strings.Join(strings.Fields(text), " "))
}
