package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jordigilh/reliefnet/pkg/geo"
	"github.com/jordigilh/reliefnet/pkg/metrics"
	"github.com/jordigilh/reliefnet/pkg/reports"
)

// gatherAll fans out one goroutine per adapter and barriers until every
// adapter's Gather call has returned, so no clustering begins before every
// gather finishes. Adapter.Gather takes no context, so a slow adapter is
// waited for in full: the per-adapter timeout only logs an overrun after
// the call returns, and the query deadline does not cut a running gather
// short. A per-adapter panic is recovered and turned into an empty result,
// never a pipeline abort.
func (p *Pipeline) gatherAll(ctx context.Context, now time.Time, bbox geo.BoundingBox) ([]reports.Report, bool) {
	results := make([][]reports.Report, len(p.Adapters))
	group, gctx := errgroup.WithContext(ctx)

	for i, adapter := range p.Adapters {
		i, adapter := i, adapter
		group.Go(func() (err error) {
			adapterCtx, cancel := context.WithTimeout(gctx, p.adapterTimeout())
			defer cancel()

			defer func() {
				if r := recover(); r != nil {
					p.Log.WithField("adapter", adapter.Name()).
						WithField("panic", r).
						Error("pipeline: adapter gather panicked, treating as empty result")
					results[i] = nil
				}
			}()

			timer := metrics.NewTimer()
			results[i] = adapter.Gather(now, bbox)
			timer.RecordAdapterGather(adapter.Name())

			select {
			case <-adapterCtx.Done():
				if adapterCtx.Err() == context.DeadlineExceeded {
					p.Log.WithField("adapter", adapter.Name()).Warn("pipeline: adapter gather exceeded its timeout")
				}
			default:
			}
			return nil
		})
	}

	_ = group.Wait()

	partial := ctx.Err() != nil
	var all []reports.Report
	for _, r := range results {
		all = append(all, r...)
		metrics.ReportsIngestedTotal.Add(float64(len(r)))
	}
	return all, partial
}

// gatherReportsBySource buckets reports by provenance, for
// situational_awareness.reports_by_source.
func gatherReportsBySource(reportList []reports.Report) map[string]int {
	out := map[string]int{}
	for _, r := range reportList {
		out[string(r.Source)]++
	}
	return out
}

// GatherNew is C9's gather_new(): run the same gather every query runs, then
// keep only the reports whose timestamp falls in (previous, now] on the
// scenario clock (spec §4.7, invariant 5 — gather_new() ⊆ gather_all()).
// With no Clock configured, every report passes (there is no previous tick
// to filter against).
func (p *Pipeline) GatherNew(ctx context.Context, bbox geo.BoundingBox) ([]reports.Report, bool) {
	now := p.now()
	all, partial := p.gatherAll(ctx, now, bbox)
	if p.Clock == nil {
		return all, partial
	}

	newReports := make([]reports.Report, 0, len(all))
	for _, r := range all {
		if p.Clock.InWindow(r.Timestamp) {
			newReports = append(newReports, r)
		}
	}
	return newReports, partial
}
