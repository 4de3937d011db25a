// Package synth drives a speech synthesis backend to produce verified
// per-line audio clips, retrying transient failures with exponential backoff.
package synth
