// Package schedule validates operator-supplied cron schedules for periodic checks.
package schedule

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// MinInterval is the floor enforced on the gap between consecutive runs.
// Running validation checks more often than this tends to overload the
// cloud under test, so schedules below it are rejected outright.
const MinInterval = 15 * time.Minute

const (
	errSecondsNotSupported = "This cron does not support seconds in schedule (6 fields). " +
		"Exactly 5 columns must be specified for iterator expression."
	errWrongColumnCount = "Exactly 5 columns must be specified for iterator expression."
	errTooFrequent      = "Cannot schedule periodic check to run faster than every 15 minutes."
	errNoFutureRuns     = "Schedule does not produce future run times."
)

// Schedule is the validation result for a single cron expression.
// Value is the input exactly as given, never normalized. Err is non-empty
// iff Valid is false. The interval fields are the bounds on the gaps
// between consecutive fire times observed while sampling; both are zero
// when the schedule was rejected before sampling or when the input was
// empty.
type Schedule struct {
	Value              string `json:"value"`
	Valid              bool   `json:"valid"`
	Err                string `json:"error"`
	MaxIntervalSeconds int64  `json:"max_interval_seconds"`
	MinIntervalSeconds int64  `json:"min_interval_seconds"`
}

// referenceTime anchors interval sampling so that validation is
// deterministic across runs instead of depending on the wall clock.
var referenceTime = time.Date(2004, time.March, 5, 0, 0, 0, 0, time.UTC)

// standard 5-field vixie cron: minute hour day-of-month month day-of-week
var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// sampleSize is the number of consecutive fire times inspected. Five gaps
// is a sanity check, not a proof: a sufficiently irregular expression can
// still sneak a short gap outside the sampled window, and that is accepted.
const sampleSize = 6

func invalid(value, msg string) Schedule {
	return Schedule{Value: value, Err: msg}
}

// Validate classifies a candidate cron schedule. It always returns a
// result, never an error: every rejection is reported through the Err
// field so callers only branch on Valid.
//
// An empty schedule means the periodic check is disabled and is valid.
func Validate(value string) Schedule {
	if value == "" {
		return Schedule{Value: value, Valid: true}
	}

	// The cron library could parse second-level expressions, but the
	// scheduler underneath runs vixie cron semantics only.
	fields := len(strings.Fields(value))
	if fields == 6 {
		return invalid(value, errSecondsNotSupported)
	}
	if fields != 5 {
		return invalid(value, errWrongColumnCount)
	}

	spec, err := parser.Parse(value)
	if err != nil {
		return invalid(value, err.Error())
	}

	prev := spec.Next(referenceTime)
	var minGap, maxGap int64
	for i := 0; i < sampleSize-1; i++ {
		next := spec.Next(prev)
		// The library reports "no match within its lookahead" as the
		// zero time; a schedule that stops firing is unusable.
		if next.IsZero() || !next.After(prev) {
			return invalid(value, errNoFutureRuns)
		}
		gap := int64(next.Sub(prev) / time.Second)
		if i == 0 || gap < minGap {
			minGap = gap
		}
		if gap > maxGap {
			maxGap = gap
		}
		prev = next
	}

	if minGap < int64(MinInterval/time.Second) {
		return invalid(value, errTooFrequent)
	}

	return Schedule{
		Value:              value,
		Valid:              true,
		MaxIntervalSeconds: maxGap,
		MinIntervalSeconds: minGap,
	}
}
