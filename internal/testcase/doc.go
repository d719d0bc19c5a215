// Package testcase defines what a runnable test case looks like.
//
// A case is any type implementing Case. It is made known to the runner by
// registering a Meta and a Factory with a Registry; the runner creates a
// fresh instance per execution and drives it through CollectResource, Setup,
// Test and Cleanup. Cases implementing Configurable get their settings
// loaded from, or initialised into, the list's settings directory.
//
// DataProvider runs a test body once per entry of a data file, substituting
// variables and case-provided calls into each entry first:
//
//	dp := testcase.DataProvider{File: "data/login.yaml", Calls: c.calls()}
//	return dp.Run(ctx, c.rep, func(ctx context.Context, d map[string]any) error {
//		return c.login(ctx, d["user"].(string))
//	})
package testcase
