package diff

import "fmt"

// ThresholdStatus is the per-file threshold outcome, independent of the
// aggregate budget.
type ThresholdStatus string

// Threshold outcomes. Fail takes precedence over warn.
const (
	ThresholdOK   ThresholdStatus = "ok"
	ThresholdWarn ThresholdStatus = "warn"
	ThresholdFail ThresholdStatus = "fail"
)

// evaluateThresholds checks the single largest-magnitude per-file delta
// against the warn/fail limits. Only growth can trip a limit; the largest
// change shrinking the bundle always passes.
func evaluateThresholds(changes []Change, warnKB, failKB *float64) (ThresholdStatus, string) {
	if len(changes) == 0 || (warnKB == nil && failKB == nil) {
		return ThresholdOK, ""
	}

	worst := changes[0]
	if failKB != nil && float64(worst.Delta) > *failKB*bytesPerKB {
		return ThresholdFail, fmt.Sprintf("%s grew by %s, over the %.3gKB fail threshold",
			worst.Path, formatKB(worst.Delta), *failKB)
	}
	if warnKB != nil && float64(worst.Delta) > *warnKB*bytesPerKB {
		return ThresholdWarn, fmt.Sprintf("%s grew by %s, over the %.3gKB warn threshold",
			worst.Path, formatKB(worst.Delta), *warnKB)
	}
	return ThresholdOK, ""
}

// evaluateBudget checks the aggregate delta in the comparison metric
// against the configured maximum increase.
func evaluateBudget(diffMetric int64, metric Metric, budgetKB *float64) (failed bool, msg string) {
	if budgetKB == nil {
		return false, ""
	}
	if float64(diffMetric) <= *budgetKB*bytesPerKB {
		return false, ""
	}
	return true, fmt.Sprintf("%s total grew by %s, exceeding the %.3gKB budget",
		metric, formatKB(diffMetric), *budgetKB)
}

func formatKB(bytes int64) string {
	return fmt.Sprintf("%.2fKB", float64(bytes)/bytesPerKB)
}
