// Package adapters implements C3: one pure gather function per source,
// translating source-native records into canonical reports.Report values.
// Every adapter shares the same contract (spec §4.1): idempotent, deduped
// by id, time- and bbox-filtered, source-kind translated, and tolerant of a
// missing or malformed dataset — a read failure becomes an empty result and
// a logged AdapterUnavailable, never a pipeline failure.
package adapters

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/jordigilh/reliefnet/internal/errors"
	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/reports"
)

// DatasetSource abstracts reading a dataset file, so tests can point at
// testdata fixtures without touching the paths production config uses.
type DatasetSource interface {
	ReadFile(path string) ([]byte, error)
}

// FileDatasetSource reads datasets straight off the local filesystem.
type FileDatasetSource struct{}

func (FileDatasetSource) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Adapter is the common shape every C3 source implements.
type Adapter interface {
	// Name is the provenance tag attached to every report this adapter
	// produces.
	Name() string
	// Gather returns the adapter's reports visible at scenario time now,
	// restricted to bbox. It never returns an error: failures are absorbed
	// and logged, per spec §4.1's failure semantics.
	Gather(now time.Time, bbox geo.BoundingBox) []reports.Report
}

// applyGatherContract enforces the parts of the C3 contract common to every
// adapter: drop future records, drop out-of-bbox records, and dedupe by id
// (first occurrence wins), so each adapter only needs to produce candidates.
func applyGatherContract(now time.Time, bbox geo.BoundingBox, candidates []reports.Report) []reports.Report {
	seen := make(map[string]bool, len(candidates))
	out := make([]reports.Report, 0, len(candidates))
	for _, r := range candidates {
		if r.Timestamp.After(now) {
			continue
		}
		loc := geo.Location{Lat: r.Location.Lat, Lon: r.Location.Lon}
		if !bbox.Contains(loc) {
			continue
		}
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, r)
	}
	return out
}

// readDataset loads path via source, logging and returning (nil, false) on
// any failure so the caller can return an empty adapter result instead of
// propagating the error up the pipeline.
func readDataset(source DatasetSource, path string, adapterName string, log *logrus.Logger) ([]byte, bool) {
	data, err := source.ReadFile(path)
	if err != nil {
		appErr := appErrors.NewAdapterUnavailableError(adapterName, err)
		log.WithFields(appErrors.LogFields(appErr)).WithField("path", path).
			Warn("adapter: dataset unavailable, returning empty result")
		return nil, false
	}
	return data, true
}
