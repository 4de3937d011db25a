// Package sanitize maps display names (characters, scene summaries, episode
// titles) to filesystem-safe tokens. Tokens are deterministic, restricted to
// lowercase alphanumerics and underscores, and collision-aware within an
// episode via Table.
package sanitize
