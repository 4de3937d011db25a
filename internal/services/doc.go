// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp episode IDs, scene indexes, stage names, and
//     run correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification consistent across the pipeline (validation failures abort
//     before backend work; synthesis/mixing/assembly failures follow the
//     configured partial-failure policy).
//
// Use these helpers when wiring new stage logic so operational behaviour stays
// uniform across the pipeline.
package services
