// Package precondition decides whether a case may run.
//
// A Chain is built per case from the list settings and the run's Ledger of
// case results. Checks run in a fixed order and stop at the first failure,
// so only the checks that actually ran leave INFO steps in the report.
package precondition
