package precondition

import (
	"fmt"
	"slices"

	"testrig/internal/reporter"
	"testrig/internal/testcase"
)

// Recorder receives the audit trail of a precondition check.
// *reporter.Reporter satisfies it.
type Recorder interface {
	Add(status reporter.Status, headline, message string)
}

// Precondition gates a case. IsMet records its own outcome through rec
// before returning.
type Precondition interface {
	IsMet(meta testcase.Meta, rec Recorder) bool
	Description() string
}

// TypeMatch requires the case's type mask to share a bit with RunType.
type TypeMatch struct {
	RunType testcase.TestType
}

func (p TypeMatch) IsMet(meta testcase.Meta, rec Recorder) bool {
	if meta.Type&p.RunType != 0 {
		rec.Add(reporter.StatusInfo, p.Description(), "")
		return true
	}
	rec.Add(reporter.StatusInfo, p.Description(), fmt.Sprintf("case type is %s", meta.Type))
	return false
}

func (p TypeMatch) Description() string {
	return fmt.Sprintf("Case type must be %s", p.RunType)
}

// PriorityMatch requires the case's priority to be one of Allowed.
type PriorityMatch struct {
	Allowed []int
}

func (p PriorityMatch) IsMet(meta testcase.Meta, rec Recorder) bool {
	if slices.Contains(p.Allowed, meta.Priority) {
		rec.Add(reporter.StatusInfo, p.Description(), "")
		return true
	}
	rec.Add(reporter.StatusInfo, p.Description(), fmt.Sprintf("case priority is %d", meta.Priority))
	return false
}

func (p PriorityMatch) Description() string {
	return fmt.Sprintf("Case priority must be one of %v", p.Allowed)
}

// PredecessorsPassed requires every case named in PreTests to have run and
// passed. A case without pre-tests always meets it and records nothing.
type PredecessorsPassed struct {
	Ledger *Ledger
}

func (p PredecessorsPassed) IsMet(meta testcase.Meta, rec Recorder) bool {
	if len(meta.PreTests) == 0 {
		return true
	}
	for _, name := range meta.PreTests {
		res, ok := p.Ledger.Get(name)
		if !ok {
			rec.Add(reporter.StatusInfo, fmt.Sprintf("Pre-test %s has not run", name), "")
			return false
		}
		if !res.Passed {
			rec.Add(reporter.StatusInfo, fmt.Sprintf("Pre-test %s did not pass", name), "")
			return false
		}
	}
	rec.Add(reporter.StatusInfo, p.Description(), "")
	return true
}

func (p PredecessorsPassed) Description() string {
	return "All pre-tests must pass"
}

// HigherPriorityPassed fails a case that opted in with
// SkipIfHighPriorityFailed when any case with a strictly lower priority
// number has failed. Lower numbers are more urgent.
type HigherPriorityPassed struct {
	Ledger *Ledger
}

func (p HigherPriorityPassed) IsMet(meta testcase.Meta, rec Recorder) bool {
	if !meta.SkipIfHighPriorityFailed {
		return true
	}
	for _, res := range p.Ledger.Results() {
		if res.Priority < meta.Priority && !res.Passed {
			rec.Add(reporter.StatusInfo, fmt.Sprintf("Case %s did not pass", res.Name),
				fmt.Sprintf("priority %d is higher than %d", res.Priority, meta.Priority))
			return false
		}
	}
	rec.Add(reporter.StatusInfo, fmt.Sprintf("All cases above priority %d must pass", meta.Priority), "")
	return true
}

func (p HigherPriorityPassed) Description() string {
	return "All cases with higher priority must pass"
}
