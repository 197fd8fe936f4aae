package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/terralens/prospect-fusion/internal/domain"
)

// csvHeader is the stable column order downstream GIS tooling imports.
var csvHeader = []string{
	"target_id", "mean_score", "threshold", "area_m2", "depth_m",
	"volume_m3", "centroid_lon", "centroid_lat", "category", "label",
}

// WriteRegionsCSV writes the region table. Records are emitted in the order
// given, which the pipeline has already ranked per target.
func WriteRegionsCSV(w io.Writer, regions []domain.RegionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range regions {
		row := []string{
			rec.TargetID,
			strconv.FormatFloat(rec.MeanScore, 'f', 4, 64),
			strconv.FormatFloat(rec.Threshold, 'f', 2, 64),
			strconv.FormatFloat(rec.AreaM2, 'f', 1, 64),
			strconv.FormatFloat(rec.DepthM, 'f', 1, 64),
			strconv.FormatFloat(rec.VolumeM3, 'f', 1, 64),
			strconv.FormatFloat(rec.CentroidLon, 'f', 6, 64),
			strconv.FormatFloat(rec.CentroidLat, 'f', 6, 64),
			rec.Category,
			rec.Label,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// RegionsFeatureCollection represents the regions as centroid point
// features for map clients.
func RegionsFeatureCollection(regions []domain.RegionRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, rec := range regions {
		f := geojson.NewFeature(orb.Point{rec.CentroidLon, rec.CentroidLat})
		f.ID = rec.ID
		f.Properties = geojson.Properties{
			"target_id":  rec.TargetID,
			"rank":       rec.Rank,
			"label":      rec.Label,
			"category":   rec.Category,
			"mean_score": rec.MeanScore,
			"threshold":  rec.Threshold,
			"area_m2":    rec.AreaM2,
			"depth_m":    rec.DepthM,
			"volume_m3":  rec.VolumeM3,
		}
		fc.Append(f)
	}
	return fc
}
