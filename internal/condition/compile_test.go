package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileNil(t *testing.T) {
	sql, err := Compile(nil)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", sql)
}

func TestCompileEqualsLeaf(t *testing.T) {
	cond := &Condition{Op: OpEquals, Attr: "status", Val: "active"}
	sql, err := Compile(cond)
	require.NoError(t, err)
	assert.Equal(t, "(resource.attributes->>'status') = ('active')", sql)
}

func TestCompileNumericCast(t *testing.T) {
	cond := &Condition{Op: OpGreaterOrEqual, Attr: "clearance", Val: float64(5), Source: SourcePrincipal}
	sql, err := Compile(cond)
	require.NoError(t, err)
	assert.Equal(t, "(p_ctx->'principal'->>'clearance')::numeric >= (5)::numeric", sql)
}

func TestCompileAndOr(t *testing.T) {
	cond := &Condition{
		Op: OpAnd,
		Conditions: []*Condition{
			{Op: OpEquals, Attr: "active", Val: true},
			{Op: OpOr, Conditions: []*Condition{
				{Op: OpEquals, Attr: "public", Val: true},
				{Op: OpEquals, Attr: "owner", Val: "$principal.username"},
			}},
		},
	}
	sql, err := Compile(cond)
	require.NoError(t, err)
	assert.Contains(t, sql, " AND ")
	assert.Contains(t, sql, " OR ")
	assert.Contains(t, sql, "p_ctx->'principal'->>'username'")
}

func TestCompileNot(t *testing.T) {
	cond := &Condition{Op: OpNot, Conditions: []*Condition{
		{Op: OpEquals, Attr: "deleted", Val: true},
	}}
	sql, err := Compile(cond)
	require.NoError(t, err)
	assert.Equal(t, "NOT ((resource.attributes->>'deleted')::boolean = ('true')::boolean)", sql)
}

func TestCompileEmptyLogicalIsTrue(t *testing.T) {
	sql, err := Compile(&Condition{Op: OpAnd})
	require.NoError(t, err)
	assert.Equal(t, "TRUE", sql)
}

func TestCompileNotArityError(t *testing.T) {
	_, err := Compile(&Condition{Op: OpNot, Conditions: []*Condition{
		{Op: OpEquals, Attr: "a", Val: "b"},
		{Op: OpEquals, Attr: "c", Val: "d"},
	}})
	assert.ErrorIs(t, err, ErrNotArity)
}

func TestCompileIn(t *testing.T) {
	cond := &Condition{Op: OpIn, Attr: "status", Val: []any{"active", "pending"}}
	sql, err := Compile(cond)
	require.NoError(t, err)
	assert.Contains(t, sql, "jsonb_array_elements_text")
	assert.Contains(t, sql, `["active","pending"]`)
}

func TestCompileNotIn(t *testing.T) {
	cond := &Condition{Op: OpNotIn, Attr: "status", Val: []any{"deleted", "archived"}}
	sql, err := Compile(cond)
	require.NoError(t, err)
	assert.Contains(t, sql, "NOT (")
}

func TestCompileAll(t *testing.T) {
	cond := &Condition{Op: OpAll, Attr: "roles", Val: []any{"admin", "moderator"}}
	sql, err := Compile(cond)
	require.NoError(t, err)
	assert.Contains(t, sql, "@>")
}

func TestCompileUnknownOperatorErrors(t *testing.T) {
	_, err := Compile(&Condition{Op: "bogus", Attr: "x", Val: 1})
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestCompileOrTrueFallback(t *testing.T) {
	sql, err := CompileOrTrue(&Condition{Op: "bogus", Attr: "x", Val: 1})
	require.NoError(t, err)
	assert.Equal(t, "TRUE", sql)
}

func TestCompileResourceGeometryAttrShortcut(t *testing.T) {
	cond := &Condition{Op: OpSTContains, Attr: "geometry", Val: "POINT(0 0)"}
	sql, err := Compile(cond)
	require.NoError(t, err)
	assert.Contains(t, sql, "resource.geometry")
	assert.Contains(t, sql, "ST_Contains")
}

func TestCompileNestedResourcePath(t *testing.T) {
	cond := &Condition{Op: OpEquals, Attr: "status", Val: "$resource.metadata.tier"}
	sql, err := Compile(cond)
	require.NoError(t, err)
	assert.Contains(t, sql, "resource.attributes->'metadata'->>'tier'")
}
