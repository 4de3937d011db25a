// Package script defines the episode/scene/line structures handed over by
// the script generation collaborator and the validator that must pass before
// any synthesis work starts. Validation collects every violation instead of
// stopping at the first.
package script
