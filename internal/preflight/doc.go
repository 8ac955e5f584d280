// Package preflight provides readiness checks for the binaries and
// filesystem paths vidconv depends on.
//
// These checks run in two contexts:
//   - The daemon's status endpoint reports CheckSystemDeps alongside RunAll.
//   - The CLI "vidconv status" command renders the same results when the
//     daemon is not reachable.
//
// Publish checks are skipped when publishing is disabled.
package preflight
