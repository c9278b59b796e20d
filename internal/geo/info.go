package geo

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"

	"github.com/xtxerr/cloudconv/internal/errors"
)

// Info is the metadata summary of one dataset. Exactly one concrete
// variant exists per dataset kind, so callers never guard optional
// fields against the wrong kind.
type Info interface {
	Format() string
}

// RasterInfo describes a raster dataset.
type RasterInfo struct {
	Path      string
	Driver    string
	CRS       string
	Cols      int
	Rows      int
	BandCount int
}

// VectorInfo describes a vector dataset.
type VectorInfo struct {
	Path   string
	Driver string
	Layers []LayerInfo
}

// LayerInfo describes one vector layer.
type LayerInfo struct {
	Name         string
	CRS          string
	FeatureCount int
	Fields       []FieldInfo
}

// FieldInfo is one attribute field of a layer.
type FieldInfo struct {
	Name string
	Type string
}

// Describe opens the dataset at path and summarizes it. A dataset with
// raster bands is reported as raster; anything else is inspected as
// vector.
func Describe(path string) (Info, error) {
	Register()
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrDatasetOpen, path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands > 0 {
		return &RasterInfo{
			Path:      path,
			Driver:    driverLabel(path),
			CRS:       crsName(ds.Projection()),
			Cols:      st.SizeX,
			Rows:      st.SizeY,
			BandCount: st.NBands,
		}, nil
	}

	info := &VectorInfo{Path: path, Driver: driverLabel(path)}
	for _, layer := range ds.Layers() {
		li := LayerInfo{Name: layer.Name()}

		count, err := layer.FeatureCount()
		if err == nil {
			li.FeatureCount = count
		}

		// Field schema from the first feature; empty layers report
		// no fields.
		layer.ResetReading()
		if f := layer.NextFeature(); f != nil {
			for name, field := range f.Fields() {
				li.Fields = append(li.Fields, FieldInfo{Name: name, Type: fieldTypeName(field.Type())})
			}
			layer.ResetReading()
		}

		info.Layers = append(info.Layers, li)
	}
	return info, nil
}

// Format renders the raster summary for the info command.
func (i *RasterInfo) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Raster dataset:\n")
	fmt.Fprintf(&b, "Driver: %s\n", i.Driver)
	fmt.Fprintf(&b, "Size: %d x %d pixels\n", i.Cols, i.Rows)
	fmt.Fprintf(&b, "Band count: %d\n", i.BandCount)
	fmt.Fprintf(&b, "CRS: %s\n", orUnknown(i.CRS))
	return b.String()
}

// Format renders the vector summary for the info command.
func (i *VectorInfo) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vector dataset:\n")
	fmt.Fprintf(&b, "Driver: %s\n", i.Driver)
	fmt.Fprintf(&b, "Layer count: %d\n", len(i.Layers))
	for _, layer := range i.Layers {
		fmt.Fprintf(&b, "Layer: %s\n", layer.Name)
		fmt.Fprintf(&b, "Feature count: %d\n", layer.FeatureCount)
		fmt.Fprintf(&b, "Fields:\n")
		for _, f := range layer.Fields {
			fmt.Fprintf(&b, "  %s: %s\n", f.Name, f.Type)
		}
		fmt.Fprintf(&b, "CRS: %s\n", orUnknown(layer.CRS))
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// driverLabel names the format implied by the file extension. GDAL
// resolves the actual driver at open time; the label is informational.
func driverLabel(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if name, ok := driverByExt[ext]; ok {
		return name
	}
	return "Unknown"
}

var driverByExt = map[string]string{
	"tif":     "GTiff",
	"tiff":    "GTiff",
	"tff":     "GTiff",
	"asc":     "AAIGrid",
	"img":     "HFA",
	"vrt":     "VRT",
	"gpkg":    "GPKG",
	"json":    "GeoJSON",
	"geojson": "GeoJSON",
	"fgb":     "FlatGeobuf",
	"kml":     "KML",
	"gpx":     "GPX",
	"shp":     "ESRI Shapefile",
	"parquet": "Parquet",
}

func fieldTypeName(ft godal.FieldType) string {
	switch ft {
	case godal.FTInt:
		return "Integer"
	case godal.FTInt64:
		return "Integer64"
	case godal.FTReal:
		return "Real"
	case godal.FTString:
		return "String"
	case godal.FTBinary:
		return "Binary"
	case godal.FTDate:
		return "Date"
	case godal.FTTime:
		return "Time"
	case godal.FTDateTime:
		return "DateTime"
	case godal.FTIntList:
		return "IntegerList"
	case godal.FTInt64List:
		return "Integer64List"
	case godal.FTRealList:
		return "RealList"
	case godal.FTStringList:
		return "StringList"
	default:
		return "Unknown"
	}
}
