package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sizewatch/sizewatch/diff"
)

// WriteOutputs appends the run's outputs to the workflow output file.
// A missing path is a no-op so local runs work without the CI plumbing.
func WriteOutputs(path string, r diff.Result) error {
	if path == "" {
		return nil
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	var b strings.Builder
	writeOutput(&b, "status", string(r.Status))
	writeOutput(&b, "compare-metric", string(r.CompareMetric))
	writeOutput(&b, "diff-metric", fmt.Sprintf("%d", r.DiffMetric))
	if r.Current != nil {
		writeOutput(&b, "total-size", fmt.Sprintf("%d", r.Current.TotalSize))
		writeOutput(&b, "total-gzip", fmt.Sprintf("%d", r.Current.TotalGzip))
		writeOutput(&b, "total-brotli", fmt.Sprintf("%d", r.Current.TotalBrotli))
	}
	writeOutput(&b, "diff-size", fmt.Sprintf("%d", r.DiffSize))
	writeOutput(&b, "diff-gzip", fmt.Sprintf("%d", r.DiffGzip))
	writeOutput(&b, "diff-brotli", fmt.Sprintf("%d", r.DiffBrotli))
	writeOutput(&b, "diff", string(payload))

	return appendFile(path, b.String())
}

// writeOutput emits one key=value pair in the workflow output format.
// Values containing newlines use the delimiter syntax with a random
// delimiter, which cannot be forged by the value itself.
func writeOutput(b *strings.Builder, key, value string) {
	if !strings.ContainsAny(value, "\r\n") {
		fmt.Fprintf(b, "%s=%s\n", key, value)
		return
	}
	delim, err := gonanoid.New()
	if err != nil {
		delim = "SIZEWATCH_EOF"
	}
	fmt.Fprintf(b, "%s<<%s\n%s\n%s\n", key, delim, value, delim)
}

// AppendSummary appends the rendered summary to the job summary file.
func AppendSummary(path string, r diff.Result) error {
	if path == "" {
		return nil
	}
	return appendFile(path, Summary(r)+"\n")
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(content)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
