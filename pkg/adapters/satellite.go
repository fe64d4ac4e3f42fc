package adapters

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/jordigilh/reliefnet/internal/errors"
	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/reports"
	sharedmath "github.com/jordigilh/reliefnet/pkg/shared/math"
)

// SatelliteAgentWeight is the trust weight applied to every satellite
// detection, after kind prior and area scaling (spec §4.1).
const SatelliteAgentWeight = 0.90

// satelliteKindPriors are the per-detection-kind confidence priors, keyed
// by the source dataset's native "type" field.
var satelliteKindPriors = map[string]float64{
	"flooding":        0.90,
	"road_damage":     0.85,
	"bridge_damage":   0.88,
	"landslide":       0.80,
	"building_damage": 0.75,
	"debris":          0.70,
}

// satelliteKindMap translates the dataset's native detection types to the
// canonical event kind closest in meaning. landslide and debris are mapped
// to road_damage since both are road-blocking conditions in this dataset;
// building_damage has no road-affecting counterpart and maps to the general
// infrastructure_damage kind.
var satelliteKindMap = map[string]reports.EventKind{
	"flooding":        reports.Flooding,
	"road_damage":     reports.RoadDamage,
	"bridge_damage":   reports.BridgeCollapse,
	"landslide":       reports.RoadDamage,
	"debris":          reports.RoadDamage,
	"building_damage": reports.InfrastructureDamage,
}

type satelliteDetectionsFile struct {
	Detections []satelliteDetection `json:"detections"`
}

type satelliteDetection struct {
	ID            string           `json:"id"`
	Timestamp     time.Time        `json:"timestamp"`
	Type          string           `json:"type"`
	Location      reports.Location `json:"location"`
	Confidence    *float64         `json:"confidence,omitempty"`
	AreaSqM       *float64         `json:"area_sqm,omitempty"`
	ImagerySource string           `json:"imagery_source,omitempty"`
	TileID        string           `json:"tile_id,omitempty"`
	PreImageDate  string           `json:"pre_image_date,omitempty"`
	PostImageDate string           `json:"post_image_date,omitempty"`
	Description   string           `json:"description,omitempty"`
}

// SatelliteAdapter turns pre-computed detection records into reports. Tile
// and raster analysis themselves are out of scope (spec §1); this adapter
// only consumes the resulting records.
type SatelliteAdapter struct {
	Path   string
	Source DatasetSource
	Log    *logrus.Logger
}

func (a SatelliteAdapter) Name() string { return string(reports.SourceSatellite) }

func (a SatelliteAdapter) Gather(now time.Time, bbox geo.BoundingBox) []reports.Report {
	data, ok := readDataset(a.Source, a.Path, a.Name(), a.Log)
	if !ok {
		return nil
	}

	var file satelliteDetectionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		appErr := appErrors.NewAdapterUnavailableError(a.Name(), err)
		a.Log.WithFields(appErrors.LogFields(appErr)).Warn("adapter: malformed satellite dataset")
		return nil
	}

	candidates := make([]reports.Report, 0, len(file.Detections))
	for _, d := range file.Detections {
		kind, ok := satelliteKindMap[d.Type]
		if !ok {
			continue
		}
		candidates = append(candidates, reports.Report{
			ID:            d.ID,
			Timestamp:     d.Timestamp,
			Kind:          kind,
			Location:      d.Location,
			Description:   satelliteDescription(d),
			Source:        reports.SourceSatellite,
			RawConfidence: satelliteConfidence(d),
			RawPayload:    satellitePayload(d),
			ProvenanceTag: a.Name(),
			Metadata:      satelliteMetadata(d),
		})
	}
	return applyGatherContract(now, bbox, candidates)
}

func satelliteConfidence(d satelliteDetection) float64 {
	// Raw confidence is computed from the kind prior and area, per spec
	// §4.1 — d.Confidence (if present) is the upstream model's own score
	// and is carried through in RawPayload for audit, not used here.
	prior, ok := satelliteKindPriors[d.Type]
	if !ok {
		prior = 0.5
	}

	scale := 1.0
	if d.AreaSqM != nil {
		switch {
		case *d.AreaSqM < 100:
			scale = 0.8
		case *d.AreaSqM < 500:
			scale = 0.9
		}
	}

	return sharedmath.Clamp(prior*scale*SatelliteAgentWeight, 0, 1)
}

func satelliteDescription(d satelliteDetection) string {
	if d.Description != "" {
		return d.Description
	}
	return fmt.Sprintf("satellite detection: %s", d.Type)
}

func satellitePayload(d satelliteDetection) map[string]any {
	return map[string]any{
		"type":                d.Type,
		"pre_image_date":      d.PreImageDate,
		"post_image_date":     d.PostImageDate,
		"upstream_confidence": d.Confidence,
	}
}

func satelliteMetadata(d satelliteDetection) map[string]string {
	m := map[string]string{}
	if d.ImagerySource != "" {
		m["imagery_source"] = d.ImagerySource
	}
	if d.TileID != "" {
		m["tile_id"] = d.TileID
	}
	if d.AreaSqM != nil {
		m["area_sqm"] = fmt.Sprintf("%g", *d.AreaSqM)
	}
	return m
}
