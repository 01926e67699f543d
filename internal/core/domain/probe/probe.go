package probe

import "time"

// Result captures the outcome of a single connectivity probe.
type Result struct {
	Name    string        `json:"name"`
	Passed  bool          `json:"passed"`
	Detail  string        `json:"detail"`
	Elapsed time.Duration `json:"elapsed"`
}

// Report is an ordered list of probe results for one run.
type Report []Result

// Passed reports whether every probe in the report passed.
func (r Report) Passed() bool {
	for _, res := range r {
		if !res.Passed {
			return false
		}
	}
	return true
}

// TestPayload is the value written to the cache during the cache probe.
// An explicit type keeps the written and read shapes from drifting.
type TestPayload struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}
