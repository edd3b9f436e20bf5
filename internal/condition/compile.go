package condition

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultCtxParam is the placeholder substituted into compiled
// fragments wherever a condition references $context.* or
// $principal.* — the caller binds the actual context JSONB value to
// this parameter when executing the fragment.
const DefaultCtxParam = "p_ctx"

// Compiler lowers a Condition tree to a SQL boolean expression
// fragment safe to splice into a WHERE clause alongside the resource
// row's own realm/resource_type filter.
type Compiler struct {
	// CtxParam is the query-parameter name or placeholder the compiled
	// fragment references for context/principal lookups.
	CtxParam string
	// Permissive, when true, makes Compile behave like CompileOrTrue:
	// unknown operators render as TRUE instead of erroring.
	Permissive bool
}

// NewCompiler returns a Compiler using DefaultCtxParam and rejecting
// unknown operators.
func NewCompiler() *Compiler {
	return &Compiler{CtxParam: DefaultCtxParam}
}

// Compile renders cond to a SQL fragment. A nil cond compiles to "TRUE"
// (an unconditional grant), matching a type-level ACL with no
// conditions. Compile returns ErrUnknownOperator for any leaf whose
// operator it does not recognize — see SPEC_FULL.md §4.1 for why this
// differs from the permissive PL/pgSQL original.
func Compile(cond *Condition) (string, error) {
	return NewCompiler().Compile(cond)
}

// CompileOrTrue compiles cond the way the original PL/pgSQL
// compile_condition_to_sql function did: a leaf with an unknown
// operator becomes an unconditional TRUE rather than an error. A "not"
// node without exactly one child still returns ErrNotArity. Exported for hosts that depend on that historical
// behavior; this engine's own callers use Compile.
func CompileOrTrue(cond *Condition) (string, error) {
	c := NewCompiler()
	c.Permissive = true
	return c.Compile(cond)
}

func (c *Compiler) ctxParam() string {
	if c.CtxParam == "" {
		return DefaultCtxParam
	}
	return c.CtxParam
}

// Compile renders cond to a SQL fragment using this Compiler's settings.
func (c *Compiler) Compile(cond *Condition) (string, error) {
	if cond == nil {
		return "TRUE", nil
	}
	return c.compileNode(cond)
}

func (c *Compiler) compileNode(cond *Condition) (string, error) {
	switch {
	case cond.Op == OpAnd || cond.Op == OpOr:
		return c.compileBool(cond)
	case cond.Op == OpNot:
		return c.compileNot(cond)
	default:
		return c.compileLeaf(cond)
	}
}

func (c *Compiler) compileBool(cond *Condition) (string, error) {
	if len(cond.Conditions) == 0 {
		return "TRUE", nil
	}
	parts := make([]string, 0, len(cond.Conditions))
	for _, child := range cond.Conditions {
		sql, err := c.compileNode(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	joiner := " AND "
	if cond.Op == OpOr {
		joiner = " OR "
	}
	return "(" + strings.Join(parts, joiner) + ")", nil
}

func (c *Compiler) compileNot(cond *Condition) (string, error) {
	if len(cond.Conditions) != 1 {
		return "", ErrNotArity
	}
	sql, err := c.compileNode(cond.Conditions[0])
	if err != nil {
		return "", err
	}
	return "NOT (" + sql + ")", nil
}

func (c *Compiler) compileLeaf(cond *Condition) (string, error) {
	lhs := c.buildLHS(cond)
	rhs, valText := c.buildRHS(cond)

	switch cond.Op {
	case OpEquals, OpNotEquals, OpLessThan, OpGreaterThan, OpLessOrEqual, OpGreaterOrEqual, OpIn, OpNotIn:
		lhs, rhs = applyCast(cond.Val, lhs, rhs)
		switch cond.Op {
		case OpEquals:
			return lhs + " = " + rhs, nil
		case OpNotEquals:
			return lhs + " != " + rhs, nil
		case OpLessThan:
			return lhs + " < " + rhs, nil
		case OpGreaterThan:
			return lhs + " > " + rhs, nil
		case OpLessOrEqual:
			return lhs + " <= " + rhs, nil
		case OpGreaterOrEqual:
			return lhs + " >= " + rhs, nil
		case OpIn:
			return lhs + " = ANY(ARRAY(SELECT jsonb_array_elements_text(" + quoteJSONB(cond.Val) + ")))", nil
		case OpNotIn:
			return "NOT (" + lhs + " = ANY(ARRAY(SELECT jsonb_array_elements_text(" + quoteJSONB(cond.Val) + "))))", nil
		}
	case OpAll:
		// Containment compares JSONB arrays: the ->> text of the LHS array
		// is cast back to jsonb, and a literal val is its JSON encoding.
		all := quoteJSONB(cond.Val)
		if strings.HasPrefix(valText, "$") {
			all = "(" + rhs + ")::jsonb"
		}
		return fmt.Sprintf("(%s)::jsonb @> %s", lhs, all), nil
	case OpSTDWithin, OpSTContains, OpSTWithin, OpSTIntersects, OpSTCovers:
		geomFunc := geomFuncFor(valText, rhs)
		if lhs != "resource.geometry" {
			lhs = wrapLHSForSpatial(lhs)
		}
		if cond.Op == OpSTDWithin {
			return fmt.Sprintf("ST_DWithin(%s, %s, %s)", lhs, geomFunc, distanceArg(cond.Args)), nil
		}
		fn := spatialFuncName(cond.Op)
		return fmt.Sprintf("%s(%s, %s)", fn, lhs, geomFunc), nil
	}

	if c.Permissive {
		return "TRUE", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperator, cond.Op)
}

func spatialFuncName(op Operator) string {
	switch op {
	case OpSTContains:
		return "ST_Contains"
	case OpSTWithin:
		return "ST_Within"
	case OpSTIntersects:
		return "ST_Intersects"
	case OpSTCovers:
		return "ST_Covers"
	default:
		return "ST_DWithin"
	}
}

// buildLHS constructs the left-hand side column/path expression for a
// leaf condition. Spatial operators keep the value as JSONB (the `->`
// operator) since they need to parse geometry from it; every other
// operator extracts text (`->>`).
func (c *Compiler) buildLHS(cond *Condition) string {
	spatial := cond.IsSpatial()
	arrow := "->>"
	if spatial {
		arrow = "->"
	}

	switch cond.EffectiveSource() {
	case SourcePrincipal:
		return fmt.Sprintf("%s->'principal'%s%s", c.ctxParam(), arrow, quoteLiteral(cond.Attr))
	case SourceContext:
		return fmt.Sprintf("%s->'context'%s%s", c.ctxParam(), arrow, quoteLiteral(cond.Attr))
	default: // SourceResource and anything unrecognized
		if cond.Attr == "geometry" {
			return "resource.geometry"
		}
		return fmt.Sprintf("resource.attributes%s%s", arrow, quoteLiteral(cond.Attr))
	}
}

// buildRHS constructs the right-hand side expression for a leaf
// condition and also returns the raw text form of the value (used by
// spatial geometry classification). It supports nested variable
// references of the form $principal.a.b, $context.a.b and
// $resource.a.b in addition to literal scalars, arrays and JSON values.
func (c *Compiler) buildRHS(cond *Condition) (rhs string, valText string) {
	valText = rawValText(cond.Val)
	spatial := cond.IsSpatial()

	if strings.HasPrefix(valText, "$") {
		switch {
		case strings.HasPrefix(valText, "$principal."):
			return c.buildVarPath(strings.TrimPrefix(valText, "$principal."), "principal", spatial), valText
		case strings.HasPrefix(valText, "$context."):
			return c.buildVarPath(strings.TrimPrefix(valText, "$context."), "context", spatial), valText
		case strings.HasPrefix(valText, "$resource."):
			return c.buildResourcePath(strings.TrimPrefix(valText, "$resource.")), valText
		default:
			return quoteLiteral(valText), valText
		}
	}

	switch v := cond.Val.(type) {
	case nil:
		return "NULL", valText
	case bool:
		return quoteLiteral(strconv.FormatBool(v)), valText
	case float64:
		return formatNumber(v), valText
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, quoteLiteral(rawValText(item)))
		}
		return "(" + strings.Join(parts, ", ") + ")", valText
	default:
		return quoteLiteral(valText), valText
	}
}

func (c *Compiler) buildVarPath(path, bag string, spatial bool) string {
	parts := strings.Split(path, ".")
	sql := fmt.Sprintf("%s->'%s'", c.ctxParam(), bag)
	for i, p := range parts {
		if i == len(parts)-1 {
			if spatial {
				sql += "->" + quoteLiteral(p)
			} else {
				sql += "->>" + quoteLiteral(p)
			}
		} else {
			sql += "->" + quoteLiteral(p)
		}
	}
	return sql
}

func (c *Compiler) buildResourcePath(path string) string {
	parts := strings.Split(path, ".")
	if len(parts) == 1 {
		return fmt.Sprintf("resource.attributes->>%s", quoteLiteral(parts[0]))
	}
	sql := "resource.attributes"
	for i, p := range parts {
		if i == len(parts)-1 {
			sql += "->>" + quoteLiteral(p)
		} else {
			sql += "->" + quoteLiteral(p)
		}
	}
	return sql
}

// applyCast mirrors the original compiler's numeric/boolean cast
// suffixes applied to both sides of comparison and set operators so
// that, e.g., a JSON string "5" compares correctly against a numeric 5.
func applyCast(val any, lhs, rhs string) (string, string) {
	suffix := ""
	switch val.(type) {
	case float64:
		suffix = "::numeric"
	case bool:
		suffix = "::boolean"
	}
	return "(" + lhs + ")" + suffix, "(" + rhs + ")" + suffix
}

// rawValText renders val the way Postgres's `#>> '{}'` JSONB text
// extractor would: the bare string for strings, Go's default number
// formatting for numbers, "true"/"false" for booleans, "" for nil, and
// the compact JSON encoding for arrays/objects.
func rawValText(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// quoteJSONB renders val as a quoted SQL string literal containing its
// JSON encoding, for casting back to ::jsonb in IN/NOT IN/ALL expressions.
func quoteJSONB(val any) string {
	b, err := json.Marshal(val)
	if err != nil {
		return quoteLiteral("null") + "::jsonb"
	}
	return quoteLiteral(string(b)) + "::jsonb"
}
