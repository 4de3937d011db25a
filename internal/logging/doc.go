// Package logging wraps log/slog with the handlers and helpers the pipeline
// uses everywhere: a compact console handler for interactive use, a JSON
// handler for machine consumption, attr aliases, and context-derived fields
// (episode, scene, stage, run) so every record produced inside a run carries
// its identity without threading loggers by hand.
package logging
