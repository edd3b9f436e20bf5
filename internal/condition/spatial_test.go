package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeomFuncClassification(t *testing.T) {
	cases := []struct {
		valText string
		want    string
	}{
		{"$context.location", "parse_geometry_to_3857"},
		{`{"type":"Point","coordinates":[0,0]}`, "ST_Transform(ST_SetSRID(ST_GeomFromGeoJSON"},
		{"SRID=3857;POINT(0 0)", "ST_GeomFromEWKT"},
		{"SRID=4326;POINT(0 0)", "ST_Transform(ST_GeomFromEWKT"},
		{"POINT(0 0)", "ST_SetSRID(ST_GeomFromText"},
	}
	for _, c := range cases {
		got := geomFuncFor(c.valText, "'x'")
		assert.Contains(t, got, c.want, "valText=%s", c.valText)
	}
}

func TestDistanceArgScalar(t *testing.T) {
	assert.Equal(t, "5000", distanceArg(float64(5000)))
}

func TestDistanceArgObject(t *testing.T) {
	assert.Equal(t, "5000", distanceArg(map[string]any{"distance": float64(5000)}))
}

func TestDistanceArgDefault(t *testing.T) {
	assert.Equal(t, "0", distanceArg(nil))
}

func TestCompileSTDWithinWithDistance(t *testing.T) {
	cond := &Condition{
		Op:     OpSTDWithin,
		Attr:   "geometry",
		Source: SourceResource,
		Val:    "$context.location",
		Args:   float64(5000),
	}
	sql, err := Compile(cond)
	require.NoError(t, err)
	assert.Contains(t, sql, "ST_DWithin(resource.geometry,")
	assert.Contains(t, sql, "5000")
}
