package manifest

import "github.com/dosco/stateful-abac/internal/condition"

// FluentCondition is a chainable condition builder, the Go rendering
// of the SDK's FluentCondition: start with Attr(name), optionally pick
// a source, then call a comparison/spatial method to produce a
// *condition.Condition leaf ready for an ACL or a combinator.
type FluentCondition struct {
	attr   string
	source condition.Source
}

// Attr starts a condition chain for the named attribute, defaulting to
// the resource attribute bag.
func Attr(name string) *FluentCondition {
	return &FluentCondition{attr: name, source: condition.SourceResource}
}

// FromPrincipal reads attr from the authenticated principal's attributes.
func (b *FluentCondition) FromPrincipal() *FluentCondition {
	b.source = condition.SourcePrincipal
	return b
}

// FromContext reads attr from the authorization request's context.
func (b *FluentCondition) FromContext() *FluentCondition {
	b.source = condition.SourceContext
	return b
}

// FromResource reads attr from the resource's attributes (the default).
func (b *FluentCondition) FromResource() *FluentCondition {
	b.source = condition.SourceResource
	return b
}

func (b *FluentCondition) leaf(op condition.Operator, val any, args any) *condition.Condition {
	return &condition.Condition{Op: op, Attr: b.attr, Val: val, Source: b.source, Args: args}
}

// Eq builds an equality condition.
func (b *FluentCondition) Eq(val any) *condition.Condition { return b.leaf(condition.OpEquals, val, nil) }

// Neq builds a not-equal condition.
func (b *FluentCondition) Neq(val any) *condition.Condition { return b.leaf(condition.OpNotEquals, val, nil) }

// Gt builds a greater-than condition.
func (b *FluentCondition) Gt(val any) *condition.Condition { return b.leaf(condition.OpGreaterThan, val, nil) }

// Lt builds a less-than condition.
func (b *FluentCondition) Lt(val any) *condition.Condition { return b.leaf(condition.OpLessThan, val, nil) }

// Gte builds a greater-than-or-equal condition.
func (b *FluentCondition) Gte(val any) *condition.Condition {
	return b.leaf(condition.OpGreaterOrEqual, val, nil)
}

// Lte builds a less-than-or-equal condition.
func (b *FluentCondition) Lte(val any) *condition.Condition {
	return b.leaf(condition.OpLessOrEqual, val, nil)
}

// In builds an in-list condition.
func (b *FluentCondition) In(vals []any) *condition.Condition { return b.leaf(condition.OpIn, vals, nil) }

// NotIn builds a not-in-list condition.
func (b *FluentCondition) NotIn(vals []any) *condition.Condition {
	return b.leaf(condition.OpNotIn, vals, nil)
}

// All builds an array-superset condition (attr contains every val).
func (b *FluentCondition) All(vals []any) *condition.Condition { return b.leaf(condition.OpAll, vals, nil) }

// Dwithin builds a spatial distance-within condition: attr's geometry
// is within distance meters of val.
func (b *FluentCondition) Dwithin(val any, distanceMeters float64) *condition.Condition {
	return b.leaf(condition.OpSTDWithin, val, distanceMeters)
}

// Contains builds a spatial contains condition.
func (b *FluentCondition) Contains(val any) *condition.Condition {
	return b.leaf(condition.OpSTContains, val, nil)
}

// Within builds a spatial within condition.
func (b *FluentCondition) Within(val any) *condition.Condition {
	return b.leaf(condition.OpSTWithin, val, nil)
}

// Intersects builds a spatial intersects condition.
func (b *FluentCondition) Intersects(val any) *condition.Condition {
	return b.leaf(condition.OpSTIntersects, val, nil)
}

// Covers builds a spatial covers condition.
func (b *FluentCondition) Covers(val any) *condition.Condition {
	return b.leaf(condition.OpSTCovers, val, nil)
}

// And combines conditions with logical AND.
func And(conds ...*condition.Condition) *condition.Condition {
	return &condition.Condition{Op: condition.OpAnd, Conditions: conds}
}

// Or combines conditions with logical OR.
func Or(conds ...*condition.Condition) *condition.Condition {
	return &condition.Condition{Op: condition.OpOr, Conditions: conds}
}

// Not negates a single condition.
func Not(cond *condition.Condition) *condition.Condition {
	return &condition.Condition{Op: condition.OpNot, Conditions: []*condition.Condition{cond}}
}
