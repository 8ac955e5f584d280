// Package services defines shared utilities consumed by the conversion worker,
// the job engine, and the presentation layers.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Describe which turns
//     a wrapped failure into the short message stored on a job.
//
// Use these helpers when wiring new job logic so failure reporting and
// observability stay uniform across the engine.
package services
