package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sizewatch/sizewatch/bundlestats"
	"github.com/sizewatch/sizewatch/diff"
)

func sampleResult(t *testing.T) diff.Result {
	t.Helper()
	baseline := bundlestats.New([]bundlestats.FileEntry{
		{Path: "app.js", Name: "app.js", Size: 100000, Gzip: 30000},
		{Path: "vendor.js", Name: "vendor.js", Size: 200000, Gzip: 60000},
	}, "base")
	current := bundlestats.New([]bundlestats.FileEntry{
		{Path: "app.js", Name: "app.js", Size: 110000, Gzip: 33000},
		{Path: "vendor.js", Name: "vendor.js", Size: 200000, Gzip: 60000},
	}, "head")
	return diff.Compute(baseline, current, diff.Options{GzipEnabled: true})
}

func TestCommentPass(t *testing.T) {
	body := Comment(sampleResult(t))

	if !strings.HasPrefix(body, Marker) {
		t.Error("comment should start with the marker")
	}
	if !strings.Contains(body, "✅") {
		t.Errorf("missing pass icon:\n%s", body)
	}
	if !strings.Contains(body, "**Gzip**") {
		t.Errorf("compare metric should be bolded:\n%s", body)
	}
	if strings.Contains(body, "Brotli") {
		t.Errorf("disabled metric should be omitted:\n%s", body)
	}
	if !strings.Contains(body, "`app.js`") {
		t.Errorf("largest change should name the file:\n%s", body)
	}
	if strings.Contains(body, "`vendor.js`") {
		t.Errorf("unchanged file should not appear in changes:\n%s", body)
	}
}

func TestCommentFail(t *testing.T) {
	fail := 1.0
	baseline := bundlestats.New([]bundlestats.FileEntry{
		{Path: "app.js", Name: "app.js", Size: 100000},
	}, "base")
	current := bundlestats.New([]bundlestats.FileEntry{
		{Path: "app.js", Name: "app.js", Size: 200000},
	}, "head")
	r := diff.Compute(baseline, current, diff.Options{FailAboveKB: &fail})

	body := Comment(r)
	if !strings.Contains(body, "🚫") {
		t.Errorf("missing fail icon:\n%s", body)
	}
	if !strings.Contains(body, "app.js") {
		t.Errorf("threshold message should name the file:\n%s", body)
	}
}

func TestCommentNoBaseline(t *testing.T) {
	current := bundlestats.New([]bundlestats.FileEntry{
		{Path: "app.js", Name: "app.js", Size: 5000, Gzip: 1500},
	}, "head")
	r := diff.Compute(nil, current, diff.Options{GzipEnabled: true})

	body := Comment(r)
	if !strings.Contains(body, "No baseline") {
		t.Errorf("missing no-baseline notice:\n%s", body)
	}
	if !strings.Contains(body, "4.9 KiB") {
		t.Errorf("missing current size:\n%s", body)
	}
}

func TestCommentBaselineUpdated(t *testing.T) {
	r := sampleResult(t)
	r.MarkBaselineUpdated()

	body := Comment(r)
	if !strings.Contains(body, "Baseline updated") {
		t.Errorf("missing update notice:\n%s", body)
	}
}

func TestStatusIcon(t *testing.T) {
	cases := []struct {
		status string
		want   string
	}{
		{string(diff.StatusFail), "🚫"},
		{string(diff.ThresholdFail), "🚫"},
		{string(diff.ThresholdWarn), "⚠️"},
		{string(diff.StatusPass), "✅"},
		{string(diff.ThresholdOK), "✅"},
	}
	for _, c := range cases {
		if got := statusIcon(c.status); got != c.want {
			t.Errorf("statusIcon(%q) = %q, want %q", c.status, got, c.want)
		}
	}
}

func TestCommentWarnThreshold(t *testing.T) {
	warn := 1.0
	baseline := bundlestats.New([]bundlestats.FileEntry{
		{Path: "app.js", Name: "app.js", Size: 100000},
	}, "base")
	current := bundlestats.New([]bundlestats.FileEntry{
		{Path: "app.js", Name: "app.js", Size: 110000},
	}, "head")
	r := diff.Compute(baseline, current, diff.Options{WarnAboveKB: &warn})

	body := Comment(r)
	if !strings.Contains(body, "⚠️") {
		t.Errorf("missing warn icon:\n%s", body)
	}
}

func TestSummaryDropsMarker(t *testing.T) {
	if strings.Contains(Summary(sampleResult(t)), Marker) {
		t.Error("summary should not carry the comment marker")
	}
}

func TestWriteOutputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	r := sampleResult(t)

	if err := WriteOutputs(path, r); err != nil {
		t.Fatalf("WriteOutputs: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "status=pass\n") {
		t.Errorf("missing status output:\n%s", content)
	}
	if !strings.Contains(content, "compare-metric=gzip\n") {
		t.Errorf("missing compare-metric output:\n%s", content)
	}

	// Discrete totals and per-metric diffs are outputs of their own so
	// downstream steps can reference them without parsing JSON.
	for _, want := range []string{
		"total-size=310000\n",
		"total-gzip=93000\n",
		"total-brotli=0\n",
		"diff-size=10000\n",
		"diff-gzip=3000\n",
		"diff-brotli=0\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("missing %q in outputs:\n%s", want, content)
		}
	}

	// The diff output is a compact JSON document that round-trips.
	var payload string
	for _, line := range strings.Split(content, "\n") {
		if rest, ok := strings.CutPrefix(line, "diff="); ok {
			payload = rest
			break
		}
	}
	if payload == "" {
		t.Fatalf("missing diff output:\n%s", content)
	}
	var decoded diff.Result
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("diff output is not valid JSON: %v\n%s", err, payload)
	}
	if decoded.Status != diff.StatusPass {
		t.Errorf("decoded status = %q", decoded.Status)
	}
}

func TestWriteOutputMultiline(t *testing.T) {
	var b strings.Builder
	writeOutput(&b, "body", "line one\nline two")
	out := b.String()

	if !strings.Contains(out, "body<<") {
		t.Fatalf("multiline value should use delimiter syntax:\n%s", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	delim := strings.TrimPrefix(lines[0], "body<<")
	if delim == "" || lines[len(lines)-1] != delim {
		t.Errorf("delimiter not closed:\n%s", out)
	}
}

func TestWriteOutputsNoPath(t *testing.T) {
	if err := WriteOutputs("", sampleResult(t)); err != nil {
		t.Errorf("empty path should be a no-op, got %v", err)
	}
}

func TestAppendSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary")
	if err := AppendSummary(path, sampleResult(t)); err != nil {
		t.Fatalf("AppendSummary: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "| Metric | Before | After | Change |") {
		t.Errorf("summary missing totals table:\n%s", data)
	}
}
