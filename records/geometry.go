package records

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
)

// GeometryExtensionName is the Arrow extension name of WKB geometry columns.
// Used by GeoArrow, GeoParquet and the DuckDB spatial extension.
const GeometryExtensionName = "geoarrow.wkb"

const extensionNameKey = "ARROW:extension:name"

// NewGeometryField creates a Binary field tagged as a WKB geometry column.
func NewGeometryField(name string, nullable bool) arrow.Field {
	return arrow.Field{
		Name:     name,
		Type:     arrow.BinaryTypes.Binary,
		Nullable: nullable,
		Metadata: arrow.MetadataFrom(map[string]string{
			extensionNameKey: GeometryExtensionName,
		}),
	}
}

// IsGeometryField reports whether a field holds WKB geometries, either as a
// registered extension type or through extension name metadata.
func IsGeometryField(field arrow.Field) bool {
	if ext, ok := field.Type.(arrow.ExtensionType); ok {
		return ext.ExtensionName() == GeometryExtensionName
	}
	idx := field.Metadata.FindKey(extensionNameKey)
	return idx >= 0 && field.Metadata.Values()[idx] == GeometryExtensionName
}

// EncodeGeometry converts an orb.Geometry to WKB bytes for Arrow storage.
func EncodeGeometry(geom orb.Geometry) ([]byte, error) {
	if geom == nil {
		return nil, fmt.Errorf("cannot encode nil geometry")
	}
	return wkb.Marshal(geom)
}

// GeometryWKT decodes WKB bytes and renders the geometry as WKT.
func GeometryWKT(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("cannot decode empty WKB data")
	}
	geom, err := wkb.Unmarshal(data)
	if err != nil {
		return "", fmt.Errorf("invalid WKB geometry: %w", err)
	}
	return wkt.MarshalString(geom), nil
}
