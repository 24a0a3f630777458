package validation

import (
	"github.com/mvkit/mvkit/internal/errors"
)

// Check is a single validation check.
type Check struct {
	Name    string
	Passed  bool
	Details string
}

// Result collects the checks run against one output file.
type Result struct {
	Path   string
	Checks []Check

	Duration   float64
	Width      int
	Height     int
	VideoCodec string
	AudioCodec []string
	HDR        bool
}

func (r *Result) add(name string, passed bool, details string) {
	r.Checks = append(r.Checks, Check{Name: name, Passed: passed, Details: details})
}

// IsValid returns true if all checks passed.
func (r *Result) IsValid() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failures returns descriptions of failed checks.
func (r *Result) Failures() []string {
	var failures []string
	for _, c := range r.Checks {
		if !c.Passed {
			failures = append(failures, c.Name+": "+c.Details)
		}
	}
	return failures
}

// Err returns a validation error listing the failures, or nil when valid.
func (r *Result) Err() error {
	if r.IsValid() {
		return nil
	}
	return errors.NewValidationError(r.Path, r.Failures())
}
