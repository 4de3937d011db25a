package pipeline

import (
	"fmt"

	"podium/internal/services"
)

// Policy controls how a run reacts to scene-level failures. Line failures
// are always recovered locally; a scene whose lines all failed, or whose
// mix failed, escalates according to the policy.
type Policy string

const (
	// PolicyFailFast aborts the run on the first failed scene.
	PolicyFailFast Policy = "fail-fast"
	// PolicyBestEffort records failed scenes as dropped and assembles
	// whatever survives.
	PolicyBestEffort Policy = "best-effort"
)

// ParsePolicy validates a policy string.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(value) {
	case PolicyFailFast, PolicyBestEffort:
		return Policy(value), nil
	case "":
		return PolicyBestEffort, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "pipeline", "parse policy",
			fmt.Sprintf("unknown policy %q (want fail-fast or best-effort)", value), nil)
	}
}
