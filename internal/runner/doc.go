// Package runner drives test lists against a resource pool.
//
// A Runner is set up in three steps: LoadResource loads and connects the
// pool, SetTestList resolves a list against the case registry, and Start
// launches the run on its own goroutine. For every case the runner
//
//  1. evaluates the precondition chain and skips the case if it fails,
//  2. runs PRE modules and starts PARALLEL modules,
//  3. runs CollectResource, Setup and Test, stopping at the first error,
//     then always Cleanup,
//  4. stops PARALLEL modules and runs POST modules.
//
// Every step is recorded in the runner's reporter. The case's ledger result
// is whether its report node ended as PASS. When the reporter's halt policy
// pauses the run, Resume continues it.
package runner
