package memos

import (
	"fmt"
	"strings"
	"time"
)

// CompareOp is a timestamp comparison operator accepted by the filter
// grammar.
type CompareOp string

const (
	OpGreater        CompareOp = ">"
	OpGreaterOrEqual CompareOp = ">="
	OpLess           CompareOp = "<"
	OpLessOrEqual    CompareOp = "<="
	OpEqual          CompareOp = "=="
)

// FilterExpression is an opaque CEL filter string destined for the service's
// filter query parameter. It is a value type: composed, never mutated. A
// trusted expression came out of the FilterBuilder, which escapes every string
// literal; a raw expression was supplied verbatim by a caller and carries no
// such guarantee.
type FilterExpression struct {
	expr    string
	trusted bool
}

// RawFilter wraps a caller-supplied CEL string. Nothing is validated or
// escaped; the caller owns its grammar.
func RawFilter(expr string) FilterExpression {
	return FilterExpression{expr: strings.TrimSpace(expr)}
}

func (e FilterExpression) String() string {
	return e.expr
}

// Empty reports whether the expression imposes no constraint at all.
func (e FilterExpression) Empty() bool {
	return e.expr == ""
}

// Trusted reports whether every string literal in the expression was escaped
// by the builder.
func (e FilterExpression) Trusted() bool {
	return e.trusted
}

// And combines two expressions with logical AND. Empty operands drop out; the
// result is trusted only when both operands are.
func (e FilterExpression) And(other FilterExpression) FilterExpression {
	switch {
	case e.Empty():
		return other
	case other.Empty():
		return e
	}
	return FilterExpression{
		expr:    e.expr + " && " + other.expr,
		trusted: e.trusted && other.trusted,
	}
}

// FilterBuilder accumulates typed predicates into one AND-combined filter
// expression. Building the same predicate sequence twice yields the identical
// string. The builder performs no I/O; the only way it can fail is malformed
// caller input, reported from Build as a ValidationError.
//
// Every predicate is an atomic comparison or function call and the only
// combinator is AND, so no parenthesization is needed; escaping the string
// literals is what keeps caller-controlled text from terminating a literal
// early and smuggling in another predicate.
type FilterBuilder struct {
	parts []string
	err   error
}

func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

// ContentContains matches memos whose content contains substr.
func (b *FilterBuilder) ContentContains(substr string) *FilterBuilder {
	b.parts = append(b.parts, "content.contains("+quoteCEL(substr)+")")
	return b
}

// HasTag matches memos carrying the given hashtag. Tags live in content as
// "#tag" tokens, so this is containment on the token.
func (b *FilterBuilder) HasTag(tag string) *FilterBuilder {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		b.fail(newValidationError("tag is required"))
		return b
	}
	b.parts = append(b.parts, "content.contains("+quoteCEL("#"+tag)+")")
	return b
}

// CreateTimeCompare matches memos whose creation time compares against the
// given RFC3339 timestamp. The timestamp is normalized to UTC so equal
// instants always build equal strings.
func (b *FilterBuilder) CreateTimeCompare(op CompareOp, timestamp string) *FilterBuilder {
	switch op {
	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual, OpEqual:
	default:
		b.fail(newValidationError("invalid comparison operator %q: must be one of >, >=, <, <=, ==", string(op)))
		return b
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(timestamp))
	if err != nil {
		b.fail(newValidationError("invalid timestamp %q: must be RFC3339, e.g. 2024-01-02T15:04:05Z", timestamp))
		return b
	}

	b.parts = append(b.parts, fmt.Sprintf("createTime %s timestamp('%s')", op, t.UTC().Format(time.RFC3339)))
	return b
}

// VisibilityIs matches memos with the given visibility.
func (b *FilterBuilder) VisibilityIs(v Visibility) *FilterBuilder {
	vis, err := ParseVisibility(string(v))
	if err != nil {
		b.fail(err)
		return b
	}
	b.parts = append(b.parts, fmt.Sprintf("visibility == '%s'", vis))
	return b
}

// Build returns the combined expression, or the first error a predicate
// recorded. Zero predicates build the empty expression, which downstream
// means no filter.
func (b *FilterBuilder) Build() (FilterExpression, error) {
	if b.err != nil {
		return FilterExpression{}, b.err
	}
	return FilterExpression{
		expr:    strings.Join(b.parts, " && "),
		trusted: true,
	}, nil
}

func (b *FilterBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// quoteCEL renders s as a single-quoted CEL string literal. Backslashes and
// quotes are escaped and control characters encoded, so no embedded rune can
// close the literal.
func quoteCEL(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
