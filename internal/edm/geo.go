package edm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var crsNameRegex = regexp.MustCompile(`^EPSG:(\d+)$`)

// geoJSONType maps the type name without its Geography/Geometry prefix to
// the GeoJSON "type" member. The abstract base type accepts any of them.
var geoJSONType = map[string]string{
	"Point":           "Point",
	"LineString":      "LineString",
	"Polygon":         "Polygon",
	"MultiPoint":      "MultiPoint",
	"MultiLineString": "MultiLineString",
	"MultiPolygon":    "MultiPolygon",
	"Collection":      "GeometryCollection",
}

func geoKind(typeName string) string {
	if strings.HasPrefix(typeName, geographyPrefix) {
		return strings.TrimPrefix(typeName, geographyPrefix)
	}
	return strings.TrimPrefix(typeName, geometryPrefix)
}

// ValidateGeo checks a GeoJSON object (decoded into a map) against a
// Geography or Geometry type: the "type" member, the presence of
// coordinates or geometries, and the optional crs name and SRID facet.
func ValidateGeo(typeName string, value interface{}, facets Facets) error {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return invalid(typeName, value, "a GeoJSON object")
	}

	gotType, _ := obj["type"].(string)
	kind := geoKind(typeName)
	if kind == "" {
		found := false
		for _, t := range geoJSONType {
			if t == gotType {
				found = true
				break
			}
		}
		if !found {
			return invalid(typeName, value, "a GeoJSON geometry")
		}
	} else if want := geoJSONType[kind]; gotType != want {
		return invalid(typeName, value, fmt.Sprintf("GeoJSON type %q", want))
	}

	if gotType == "GeometryCollection" {
		if _, ok := obj["geometries"].([]interface{}); !ok {
			return invalid(typeName, value, "a geometries array")
		}
	} else if _, ok := obj["coordinates"].([]interface{}); !ok {
		return invalid(typeName, value, "a coordinates array")
	}

	crs, hasCRS := obj["crs"]
	if !hasCRS {
		return nil
	}
	srid, err := crsSRID(crs)
	if err != nil {
		return invalid(typeName, value, err.Error())
	}
	if facets.SRID != nil && *facets.SRID != srid {
		return invalid(typeName, value, fmt.Sprintf("SRID %d", *facets.SRID))
	}
	return nil
}

func crsSRID(crs interface{}) (int, error) {
	obj, ok := crs.(map[string]interface{})
	if !ok || obj["type"] != "name" {
		return 0, fmt.Errorf("a named crs")
	}
	props, _ := obj["properties"].(map[string]interface{})
	name, _ := props["name"].(string)
	m := crsNameRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("crs name in EPSG:<n> form")
	}
	return strconv.Atoi(m[1])
}
