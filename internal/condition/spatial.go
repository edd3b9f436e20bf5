package condition

import (
	"math"
	"strconv"
	"strings"
)

// geomFuncFor decides how a spatial operand's raw text should be
// turned into a geometry expression, matching the branch order of the
// original compiler: a context/principal variable reference, a GeoJSON
// object literal (assumed SRID 4326, transformed to 3857), an EWKT
// literal already in SRID 3857, an EWKT literal in another SRID
// (transformed to 3857), or plain WKT (assumed already SRID 3857).
func geomFuncFor(valText, rhs string) string {
	switch {
	case strings.HasPrefix(valText, "$"):
		return "parse_geometry_to_3857((" + rhs + ")::text)"
	case strings.HasPrefix(valText, "{"):
		return "ST_Transform(ST_SetSRID(ST_GeomFromGeoJSON(" + rhs + "), 4326), 3857)"
	case strings.HasPrefix(valText, "SRID=3857;"):
		return "ST_GeomFromEWKT(" + rhs + ")"
	case strings.HasPrefix(valText, "SRID="):
		return "ST_Transform(ST_GeomFromEWKT(" + rhs + "), 3857)"
	default:
		return "ST_SetSRID(ST_GeomFromText(" + rhs + "), 3857)"
	}
}

// wrapLHSForSpatial wraps a JSONB-path LHS (context/principal attribute)
// so its text is parsed and normalized to SRID 3857 before comparison.
// resource.geometry is already a SRID 3857 geometry column and is left
// untouched.
func wrapLHSForSpatial(lhs string) string {
	if lhs == "resource.geometry" {
		return lhs
	}
	return "parse_geometry_to_3857((" + lhs + ")::text)"
}

// distanceArg extracts the ST_DWithin distance argument: either a bare
// scalar (the fluent builder's `dwithin(val, distance)` shape) or a
// {"distance": N} object (the legacy builder's shape). Missing or
// unparsable args default to "0", matching the original compiler.
func distanceArg(args any) string {
	if m, ok := args.(map[string]any); ok {
		args = m["distance"]
	}
	text := rawValText(args)
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return text
}
