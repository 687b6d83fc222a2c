// Package wtr runs browser test files across one or more browser launchers.
//
// Every (test file, browser) pair becomes a session that is scheduled within
// a global and a per-browser concurrency budget, driven through its
// lifecycle by launcher events, and failed when a browser or its tests do
// not make progress in time. When every current session is terminal the run
// is reported. In watch mode file changes rerun only the affected test files.
//
// The root package wires the pieces together:
//
//	srv, _ := wtr.New(ctx, wtr.WithConfig(config))
//	rt := srv.Runtime()
//	summary, _ := rt.Run(ctx)
//	if summary.HasFailures() { ... }
//
// Lower level building blocks live in service/orchestrator (scheduling and
// lifecycle), service/launcher (browser adapters), service/watch and
// service/reporter.
package wtr
