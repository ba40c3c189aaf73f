// Package executor installs resolved extension sets. It walks the
// dependency-ordered list produced by the resolver, runs each
// extension's install steps through a Backend, and records every
// outcome in the manifest. Sequential and parallel execution share the
// same per-extension path; parallel mode schedules extensions as their
// dependencies complete.
package executor
