// Package reporter records the outcome of a test run as a tree.
//
// The tree has a single root (type Other) with TestList nodes for lists,
// Case nodes for cases and Step nodes for everything below a case. A node's
// status starts as INFO. Recording a status on a node also records it on
// every ancestor up to the root, but a node that already holds a status
// other than INFO or PASS keeps it. A failure deep inside a case is therefore
// visible on the case and on every enclosing list.
//
// # Cursor and Scopes
//
// New entries go under the cursor. AddList, AddTest and AddStepGroup move
// the cursor down and return a Scope whose End moves it back:
//
//	c := rep.AddTest("login")
//	defer c.End()
//
//	g := rep.AddStepGroup("SETUP")
//	rep.Add(reporter.StatusPass, "open browser", "")
//	g.End()
//
// Ending an outer scope also closes any scopes still open inside it. The
// EndStepGroup, EndTest and EndList methods remain for callers that pair
// calls by hand; unbalanced calls stop at the root.
//
// # Statistics
//
// CaseStats counts Case nodes by status; LeafStats counts leaf nodes. The
// two give different denominators for a pass rate and both are reported.
//
// # Halting
//
// With a HaltPolicy enabled, Add blocks the recording goroutine on a FAIL,
// EXCEPTION or STOP step until Resume is called or the policy's Timeout
// elapses. A zero timeout waits indefinitely; this is meant for a person
// inspecting a paused run.
//
// # Concurrency
//
// One mutex guards the whole tree. Parallel writers should report through an
// EventGroup, which adds steps under a fixed node without moving the cursor.
package reporter
