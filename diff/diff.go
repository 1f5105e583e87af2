// Package diff computes size deltas between a baseline measurement and the
// current build, and evaluates budget and per-file thresholds against a
// single comparison metric.
//
// Compute is a pure function of its inputs: the same baseline, current
// record, and options always produce the same Result.
package diff

import (
	"sort"

	"github.com/sizewatch/sizewatch/bundlestats"
)

// Metric is the size dimension all threshold math uses for one run.
type Metric string

// Comparison metrics in precedence order: brotli when enabled, else gzip
// when enabled, else raw size.
const (
	MetricBrotli Metric = "brotli"
	MetricGzip   Metric = "gzip"
	MetricSize   Metric = "size"
)

// Status is the overall outcome of a comparison run.
type Status string

// Terminal statuses. StatusBaselineUpdated is set by the trunk-build caller
// after publishing, never derived from the numbers.
const (
	StatusPass            Status = "pass"
	StatusFail            Status = "fail"
	StatusNoBaseline      Status = "no-baseline"
	StatusBaselineUpdated Status = "baseline-updated"
)

// DefaultTopChanges caps the ranked per-file change list.
const DefaultTopChanges = 5

// bytesPerKB converts configured KB thresholds to bytes.
const bytesPerKB = 1024

// Options configures a comparison. The KB thresholds are nil when unset.
type Options struct {
	BudgetMaxIncreaseKB *float64
	WarnAboveKB         *float64
	FailAboveKB         *float64

	GzipEnabled   bool
	BrotliEnabled bool

	// TopChanges caps the ranked change list; DefaultTopChanges when 0.
	TopChanges int
}

// Change is one file's delta in the comparison metric. Before is 0 for
// added files, After is 0 for removed files.
type Change struct {
	Path   string `json:"path"`
	Before int64  `json:"before"`
	After  int64  `json:"after"`
	Delta  int64  `json:"delta"`
}

// Result is the derived comparison outcome. Never persisted.
type Result struct {
	Baseline *bundlestats.Stats `json:"baseline,omitempty"`
	Current  *bundlestats.Stats `json:"current"`

	DiffSize   int64 `json:"diffSize"`
	DiffGzip   int64 `json:"diffGzip"`
	DiffBrotli int64 `json:"diffBrotli"`

	// Percent fields are 0 when the corresponding baseline total is 0;
	// a 0 here does not mean "unchanged".
	DiffPercentSize   float64 `json:"diffPercentSize"`
	DiffPercentGzip   float64 `json:"diffPercentGzip"`
	DiffPercentBrotli float64 `json:"diffPercentBrotli"`

	// CompareMetric is the dimension selected once per run; DiffMetric is
	// its aggregate delta, the single number budget checks use.
	CompareMetric Metric `json:"compareMetric"`
	DiffMetric    int64  `json:"diffMetric"`

	TopChanges []Change `json:"topChanges,omitempty"`

	Status           Status          `json:"status"`
	ThresholdStatus  ThresholdStatus `json:"thresholdStatus"`
	ThresholdMessage string          `json:"thresholdMessage,omitempty"`

	// Echoed configuration.
	GzipEnabled         bool     `json:"gzipEnabled"`
	BrotliEnabled       bool     `json:"brotliEnabled"`
	BudgetMaxIncreaseKB *float64 `json:"budgetMaxIncreaseKb,omitempty"`
	WarnAboveKB         *float64 `json:"warnAboveKb,omitempty"`
	FailAboveKB         *float64 `json:"failAboveKb,omitempty"`

	// BudgetMessage explains a budget failure, empty otherwise.
	BudgetMessage string `json:"budgetMessage,omitempty"`
}

// SelectMetric applies the fixed precedence: brotli, then gzip, then size.
func SelectMetric(gzipEnabled, brotliEnabled bool) Metric {
	switch {
	case brotliEnabled:
		return MetricBrotli
	case gzipEnabled:
		return MetricGzip
	default:
		return MetricSize
	}
}

func metricOf(f bundlestats.FileEntry, m Metric) int64 {
	switch m {
	case MetricBrotli:
		return f.Brotli
	case MetricGzip:
		return f.Gzip
	default:
		return f.Size
	}
}

func totalOf(s *bundlestats.Stats, m Metric) int64 {
	switch m {
	case MetricBrotli:
		return s.TotalBrotli
	case MetricGzip:
		return s.TotalGzip
	default:
		return s.TotalSize
	}
}

// Compute compares current against baseline. A nil baseline yields
// StatusNoBaseline with all deltas 0 and thresholds unevaluated.
func Compute(baseline, current *bundlestats.Stats, opts Options) Result {
	metric := SelectMetric(opts.GzipEnabled, opts.BrotliEnabled)

	r := Result{
		Baseline:            baseline,
		Current:             current,
		CompareMetric:       metric,
		Status:              StatusPass,
		ThresholdStatus:     ThresholdOK,
		GzipEnabled:         opts.GzipEnabled,
		BrotliEnabled:       opts.BrotliEnabled,
		BudgetMaxIncreaseKB: opts.BudgetMaxIncreaseKB,
		WarnAboveKB:         opts.WarnAboveKB,
		FailAboveKB:         opts.FailAboveKB,
	}

	if baseline == nil {
		r.Status = StatusNoBaseline
		return r
	}

	r.DiffSize = current.TotalSize - baseline.TotalSize
	r.DiffGzip = current.TotalGzip - baseline.TotalGzip
	r.DiffBrotli = current.TotalBrotli - baseline.TotalBrotli
	r.DiffPercentSize = percent(r.DiffSize, baseline.TotalSize)
	r.DiffPercentGzip = percent(r.DiffGzip, baseline.TotalGzip)
	r.DiffPercentBrotli = percent(r.DiffBrotli, baseline.TotalBrotli)
	r.DiffMetric = totalOf(current, metric) - totalOf(baseline, metric)
	r.TopChanges = topChanges(baseline, current, metric, opts.topCap())

	r.ThresholdStatus, r.ThresholdMessage = evaluateThresholds(r.TopChanges, opts.WarnAboveKB, opts.FailAboveKB)

	budgetFailed, budgetMsg := evaluateBudget(r.DiffMetric, metric, opts.BudgetMaxIncreaseKB)
	r.BudgetMessage = budgetMsg

	if budgetFailed || r.ThresholdStatus == ThresholdFail {
		r.Status = StatusFail
	}
	return r
}

// MarkBaselineUpdated records that this run's output was published as the
// new reference. Trunk-build callers invoke this after a successful
// publish, independent of the computed numbers.
func (r *Result) MarkBaselineUpdated() {
	r.Status = StatusBaselineUpdated
}

func (o Options) topCap() int {
	if o.TopChanges <= 0 {
		return DefaultTopChanges
	}
	return o.TopChanges
}

func percent(delta, baseTotal int64) float64 {
	if baseTotal == 0 {
		return 0
	}
	return float64(delta) / float64(baseTotal) * 100
}

// topChanges ranks the union of file paths from both snapshots by absolute
// delta in the comparison metric, descending, ties broken by path ascending
// so the ranking is deterministic.
func topChanges(baseline, current *bundlestats.Stats, metric Metric, cap int) []Change {
	before := baseline.ByPath()
	after := current.ByPath()

	paths := make(map[string]struct{}, len(before)+len(after))
	for p := range before {
		paths[p] = struct{}{}
	}
	for p := range after {
		paths[p] = struct{}{}
	}

	changes := make([]Change, 0, len(paths))
	for p := range paths {
		b := metricOf(before[p], metric)
		a := metricOf(after[p], metric)
		if a == b {
			continue
		}
		changes = append(changes, Change{Path: p, Before: b, After: a, Delta: a - b})
	}

	sort.Slice(changes, func(i, j int) bool {
		ai, aj := abs(changes[i].Delta), abs(changes[j].Delta)
		if ai != aj {
			return ai > aj
		}
		return changes[i].Path < changes[j].Path
	})

	if len(changes) > cap {
		changes = changes[:cap]
	}
	return changes
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
