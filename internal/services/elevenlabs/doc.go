// Package elevenlabs implements the synthesis backend contract against the
// ElevenLabs text-to-speech HTTP API.
package elevenlabs
