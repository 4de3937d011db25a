// Package pipeline coordinates episode audio generation: it validates the
// script, synthesizes line clips under a shared concurrency bound, mixes
// scenes with their ambience beds, and assembles the final episode, recording
// progress in the run ledger so interrupted episodes resume where they left
// off.
package pipeline
