package precondition

import (
	"testrig/internal/testcase"
)

// Settings are the list-level inputs to the chain.
type Settings struct {
	RunType       testcase.TestType
	PriorityToRun []int
}

// Chain is an ordered set of preconditions evaluated until the first one
// that is not met.
type Chain []Precondition

// NewChain builds the chain for one case: type, then priority when an
// allow-list is set, then pre-tests when the case declares any, then higher
// priority results.
func NewChain(s Settings, meta testcase.Meta, ledger *Ledger) Chain {
	runType := s.RunType
	if runType == 0 {
		runType = testcase.TypeAll
	}
	chain := Chain{TypeMatch{RunType: runType}}
	if len(s.PriorityToRun) > 0 {
		chain = append(chain, PriorityMatch{Allowed: s.PriorityToRun})
	}
	if len(meta.PreTests) > 0 {
		chain = append(chain, PredecessorsPassed{Ledger: ledger})
	}
	return append(chain, HigherPriorityPassed{Ledger: ledger})
}

// IsMet evaluates the chain in order and stops at the first failure. It
// returns the failing precondition, or nil when all are met.
func (c Chain) IsMet(meta testcase.Meta, rec Recorder) (bool, Precondition) {
	for _, p := range c {
		if !p.IsMet(meta, rec) {
			return false, p
		}
	}
	return true, nil
}
