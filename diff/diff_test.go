package diff

import (
	"strings"
	"testing"

	"github.com/sizewatch/sizewatch/bundlestats"
)

func kb(v float64) *float64 { return &v }

func statsOf(commit string, files ...bundlestats.FileEntry) *bundlestats.Stats {
	return bundlestats.New(files, commit)
}

func entry(path string, size, gz, br int64) bundlestats.FileEntry {
	return bundlestats.FileEntry{Path: path, Name: path, Size: size, Gzip: gz, Brotli: br}
}

func TestSelectMetric(t *testing.T) {
	cases := []struct {
		gzip, brotli bool
		want         Metric
	}{
		{false, false, MetricSize},
		{true, false, MetricGzip},
		{false, true, MetricBrotli},
		{true, true, MetricBrotli},
	}
	for _, c := range cases {
		if got := SelectMetric(c.gzip, c.brotli); got != c.want {
			t.Errorf("SelectMetric(gzip=%v, brotli=%v) = %v, want %v", c.gzip, c.brotli, got, c.want)
		}
	}
}

func TestComputeAggregates(t *testing.T) {
	base := statsOf("old", entry("a.js", 100, 40, 30), entry("b.js", 200, 90, 70))
	cur := statsOf("new", entry("a.js", 150, 60, 45), entry("b.js", 200, 90, 70))

	r := Compute(base, cur, Options{GzipEnabled: true, BrotliEnabled: true})

	if r.DiffSize != cur.TotalSize-base.TotalSize {
		t.Errorf("DiffSize = %d", r.DiffSize)
	}
	if r.DiffGzip != cur.TotalGzip-base.TotalGzip {
		t.Errorf("DiffGzip = %d", r.DiffGzip)
	}
	if r.DiffBrotli != cur.TotalBrotli-base.TotalBrotli {
		t.Errorf("DiffBrotli = %d", r.DiffBrotli)
	}
	if r.CompareMetric != MetricBrotli {
		t.Errorf("CompareMetric = %v", r.CompareMetric)
	}
	if r.DiffMetric != r.DiffBrotli {
		t.Errorf("DiffMetric = %d, want %d", r.DiffMetric, r.DiffBrotli)
	}
	if r.Status != StatusPass {
		t.Errorf("Status = %v", r.Status)
	}
}

func TestComputeNoBaseline(t *testing.T) {
	cur := statsOf("new", entry("a.js", 5000, 2000, 1500))
	r := Compute(nil, cur, Options{GzipEnabled: true, BudgetMaxIncreaseKB: kb(1)})

	if r.Status != StatusNoBaseline {
		t.Errorf("Status = %v", r.Status)
	}
	if r.DiffSize != 0 || r.DiffGzip != 0 || r.DiffBrotli != 0 || r.DiffMetric != 0 {
		t.Errorf("diffs = %d/%d/%d/%d, want all 0", r.DiffSize, r.DiffGzip, r.DiffBrotli, r.DiffMetric)
	}
	if r.ThresholdStatus != ThresholdOK {
		t.Errorf("ThresholdStatus = %v", r.ThresholdStatus)
	}
	if len(r.TopChanges) != 0 {
		t.Errorf("TopChanges = %v", r.TopChanges)
	}
}

func TestPercentZeroBaseline(t *testing.T) {
	base := statsOf("old", entry("a.js", 0, 0, 0))
	cur := statsOf("new", entry("a.js", 100, 50, 40))
	r := Compute(base, cur, Options{})
	if r.DiffPercentSize != 0 || r.DiffPercentGzip != 0 || r.DiffPercentBrotli != 0 {
		t.Errorf("percents = %v/%v/%v, want 0s", r.DiffPercentSize, r.DiffPercentGzip, r.DiffPercentBrotli)
	}
}

func TestTopChanges(t *testing.T) {
	t.Run("added and removed files", func(t *testing.T) {
		base := statsOf("old", entry("gone.js", 100, 0, 0))
		cur := statsOf("new", entry("added.js", 300, 0, 0))
		r := Compute(base, cur, Options{})

		if len(r.TopChanges) != 2 {
			t.Fatalf("len = %d: %+v", len(r.TopChanges), r.TopChanges)
		}
		if r.TopChanges[0].Path != "added.js" || r.TopChanges[0].Before != 0 || r.TopChanges[0].Delta != 300 {
			t.Errorf("added = %+v", r.TopChanges[0])
		}
		if r.TopChanges[1].Path != "gone.js" || r.TopChanges[1].After != 0 || r.TopChanges[1].Delta != -100 {
			t.Errorf("removed = %+v", r.TopChanges[1])
		}
	})

	t.Run("ordering and tie break", func(t *testing.T) {
		base := statsOf("old",
			entry("a.js", 100, 0, 0), entry("b.js", 100, 0, 0), entry("c.js", 100, 0, 0))
		cur := statsOf("new",
			entry("a.js", 150, 0, 0),  // +50
			entry("b.js", 50, 0, 0),   // -50, ties with a.js on magnitude
			entry("c.js", 400, 0, 0)) // +300
		r := Compute(base, cur, Options{})

		want := []string{"c.js", "a.js", "b.js"}
		for i, p := range want {
			if r.TopChanges[i].Path != p {
				t.Fatalf("order = %+v, want %v", r.TopChanges, want)
			}
		}
	})

	t.Run("capped", func(t *testing.T) {
		files := []bundlestats.FileEntry{}
		curFiles := []bundlestats.FileEntry{}
		for _, p := range []string{"a", "b", "c", "d", "e", "f", "g"} {
			files = append(files, entry(p, 10, 0, 0))
			curFiles = append(curFiles, entry(p, 20, 0, 0))
		}
		r := Compute(statsOf("old", files...), statsOf("new", curFiles...), Options{})
		if len(r.TopChanges) != DefaultTopChanges {
			t.Errorf("len = %d, want %d", len(r.TopChanges), DefaultTopChanges)
		}
	})

	t.Run("unchanged files excluded", func(t *testing.T) {
		base := statsOf("old", entry("same.js", 100, 0, 0), entry("mod.js", 10, 0, 0))
		cur := statsOf("new", entry("same.js", 100, 0, 0), entry("mod.js", 20, 0, 0))
		r := Compute(base, cur, Options{})
		if len(r.TopChanges) != 1 || r.TopChanges[0].Path != "mod.js" {
			t.Errorf("TopChanges = %+v", r.TopChanges)
		}
	})
}

func TestBudget(t *testing.T) {
	// Baseline gzip total 100000, current 105000, gzip metric, 4KB budget:
	// 5000 bytes = 4.88KB > 4KB, so the run fails on budget alone.
	base := statsOf("old", entry("app.js", 400000, 100000, 0))
	cur := statsOf("new", entry("app.js", 420000, 105000, 0))

	r := Compute(base, cur, Options{GzipEnabled: true, BudgetMaxIncreaseKB: kb(4)})

	if r.CompareMetric != MetricGzip {
		t.Fatalf("CompareMetric = %v", r.CompareMetric)
	}
	if r.DiffMetric != 5000 {
		t.Fatalf("DiffMetric = %d", r.DiffMetric)
	}
	if r.Status != StatusFail {
		t.Errorf("Status = %v, want fail", r.Status)
	}
	if r.ThresholdStatus != ThresholdOK {
		t.Errorf("ThresholdStatus = %v, want ok", r.ThresholdStatus)
	}
	if !strings.Contains(r.BudgetMessage, "budget") {
		t.Errorf("BudgetMessage = %q", r.BudgetMessage)
	}
}

func TestBudgetWithinLimit(t *testing.T) {
	base := statsOf("old", entry("app.js", 400000, 100000, 0))
	cur := statsOf("new", entry("app.js", 401000, 101000, 0))
	r := Compute(base, cur, Options{GzipEnabled: true, BudgetMaxIncreaseKB: kb(4)})
	if r.Status != StatusPass {
		t.Errorf("Status = %v, want pass", r.Status)
	}
}

func TestPerFileThresholds(t *testing.T) {
	t.Run("fail takes precedence over warn", func(t *testing.T) {
		// Single file grows by 60KB with warn=10 fail=50.
		base := statsOf("old", entry("big.js", 100000, 0, 0))
		cur := statsOf("new", entry("big.js", 100000+60*1024, 0, 0))

		r := Compute(base, cur, Options{WarnAboveKB: kb(10), FailAboveKB: kb(50)})
		if r.ThresholdStatus != ThresholdFail {
			t.Errorf("ThresholdStatus = %v, want fail", r.ThresholdStatus)
		}
		if !strings.Contains(r.ThresholdMessage, "big.js") {
			t.Errorf("ThresholdMessage = %q", r.ThresholdMessage)
		}
		if r.Status != StatusFail {
			t.Errorf("Status = %v, want fail", r.Status)
		}
	})

	t.Run("warn only", func(t *testing.T) {
		base := statsOf("old", entry("big.js", 100000, 0, 0))
		cur := statsOf("new", entry("big.js", 100000+20*1024, 0, 0))

		r := Compute(base, cur, Options{WarnAboveKB: kb(10), FailAboveKB: kb(50)})
		if r.ThresholdStatus != ThresholdWarn {
			t.Errorf("ThresholdStatus = %v, want warn", r.ThresholdStatus)
		}
		if r.Status != StatusPass {
			t.Errorf("Status = %v, want pass (warn does not fail the run)", r.Status)
		}
	})

	t.Run("shrinking file never trips", func(t *testing.T) {
		base := statsOf("old", entry("big.js", 500000, 0, 0))
		cur := statsOf("new", entry("big.js", 100000, 0, 0))

		r := Compute(base, cur, Options{WarnAboveKB: kb(10), FailAboveKB: kb(50)})
		if r.ThresholdStatus != ThresholdOK {
			t.Errorf("ThresholdStatus = %v, want ok", r.ThresholdStatus)
		}
	})
}

func TestMarkBaselineUpdated(t *testing.T) {
	cur := statsOf("new", entry("a.js", 100, 0, 0))
	r := Compute(nil, cur, Options{})
	r.MarkBaselineUpdated()
	if r.Status != StatusBaselineUpdated {
		t.Errorf("Status = %v", r.Status)
	}
}
