// Package report renders diff results as markdown for PR comments and
// job summaries, and exposes them as workflow outputs.
package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sizewatch/sizewatch/diff"
)

// Marker is embedded as a hidden HTML comment so an existing comment
// can be found and updated on later runs.
const Marker = "<!-- sizewatch-report -->"

var printer = message.NewPrinter(language.English)

// Comment renders the PR comment body for a diff result.
func Comment(r diff.Result) string {
	var b strings.Builder
	b.WriteString(Marker)
	b.WriteString("\n## ")
	b.WriteString(title(r))
	b.WriteString("\n\n")

	switch r.Status {
	case diff.StatusNoBaseline:
		b.WriteString("No baseline found for comparison. This run's measurements will ")
		b.WriteString("become the baseline once they land on a tracked branch.\n\n")
		b.WriteString(currentTable(r))
		return b.String()
	case diff.StatusBaselineUpdated:
		b.WriteString("Baseline updated from this build.\n\n")
		b.WriteString(currentTable(r))
		return b.String()
	}

	b.WriteString(totalsTable(r))

	if len(r.TopChanges) > 0 {
		b.WriteString("\n### Largest changes\n\n")
		b.WriteString(changesTable(r.TopChanges))
	}

	if r.ThresholdMessage != "" {
		b.WriteString("\n")
		b.WriteString(statusIcon(string(r.ThresholdStatus)))
		b.WriteString(" ")
		b.WriteString(r.ThresholdMessage)
		b.WriteString("\n")
	}
	if r.BudgetMessage != "" {
		b.WriteString("\n")
		b.WriteString(statusIcon(string(r.Status)))
		b.WriteString(" ")
		b.WriteString(r.BudgetMessage)
		b.WriteString("\n")
	}
	return b.String()
}

// Summary renders the job summary. It reuses the comment body without
// the marker, which has no meaning outside the PR thread.
func Summary(r diff.Result) string {
	return strings.TrimPrefix(Comment(r), Marker+"\n")
}

func title(r diff.Result) string {
	switch r.Status {
	case diff.StatusFail:
		return "🚫 Build size check failed"
	case diff.StatusNoBaseline:
		return "📦 Build size"
	case diff.StatusBaselineUpdated:
		return "📦 Build size baseline updated"
	default:
		if r.ThresholdStatus == diff.ThresholdWarn {
			return "⚠️ Build size increased"
		}
		return "✅ Build size check passed"
	}
}

// statusIcon accepts both Status and ThresholdStatus values; the fail
// states of the two types share the same string.
func statusIcon(status string) string {
	switch status {
	case string(diff.StatusFail):
		return "🚫"
	case string(diff.ThresholdWarn):
		return "⚠️"
	default:
		return "✅"
	}
}

// totalsTable shows before/after/delta per enabled metric, with the
// compare metric first.
func totalsTable(r diff.Result) string {
	var b strings.Builder
	b.WriteString("| Metric | Before | After | Change |\n")
	b.WriteString("|---|---:|---:|---:|\n")

	row := func(name string, before, after, delta int64, pct float64, compare bool) {
		label := name
		if compare {
			label = "**" + name + "**"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			label, size(before), size(after), change(delta, pct))
	}

	row("Size", r.Baseline.TotalSize, r.Current.TotalSize, r.DiffSize, r.DiffPercentSize,
		r.CompareMetric == diff.MetricSize)
	if r.GzipEnabled {
		row("Gzip", r.Baseline.TotalGzip, r.Current.TotalGzip, r.DiffGzip, r.DiffPercentGzip,
			r.CompareMetric == diff.MetricGzip)
	}
	if r.BrotliEnabled {
		row("Brotli", r.Baseline.TotalBrotli, r.Current.TotalBrotli, r.DiffBrotli, r.DiffPercentBrotli,
			r.CompareMetric == diff.MetricBrotli)
	}
	return b.String()
}

// currentTable shows the current totals only, for runs with no baseline
// to diff against.
func currentTable(r diff.Result) string {
	var b strings.Builder
	b.WriteString("| Metric | Size |\n")
	b.WriteString("|---|---:|\n")
	fmt.Fprintf(&b, "| Size | %s |\n", size(r.Current.TotalSize))
	if r.GzipEnabled {
		fmt.Fprintf(&b, "| Gzip | %s |\n", size(r.Current.TotalGzip))
	}
	if r.BrotliEnabled {
		fmt.Fprintf(&b, "| Brotli | %s |\n", size(r.Current.TotalBrotli))
	}
	return b.String()
}

func changesTable(changes []diff.Change) string {
	var b strings.Builder
	b.WriteString("| File | Before | After | Change |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, c := range changes {
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n",
			c.Path, size(c.Before), size(c.After), delta(c.Delta))
	}
	return b.String()
}

func size(n int64) string {
	if n == 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

func delta(d int64) string {
	switch {
	case d > 0:
		return "+" + humanize.IBytes(uint64(d))
	case d < 0:
		return "-" + humanize.IBytes(uint64(-d))
	default:
		return "0 B"
	}
}

func change(d int64, pct float64) string {
	if d == 0 {
		return "0 B"
	}
	return printer.Sprintf("%s (%+.1f%%)", delta(d), pct)
}
