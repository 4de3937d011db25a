package mix

import (
	"fmt"
	"path/filepath"
	"strings"

	"podium/internal/clip"
	"podium/internal/services"
)

// ManifestContent renders a concat manifest for the given clips. Every clip
// must be valid and carry an absolute path; the caller is responsible for
// ordering.
func ManifestContent(clips []clip.Clip) (string, error) {
	if len(clips) == 0 {
		return "", services.Wrap(services.ErrMixing, "mixing", "build manifest", "no clips to concatenate", nil)
	}
	var b strings.Builder
	for _, c := range clips {
		if !c.Valid {
			return "", services.Wrap(services.ErrMixing, "mixing", "build manifest",
				fmt.Sprintf("clip %s is not valid", c.Path), nil)
		}
		if !filepath.IsAbs(c.Path) {
			return "", services.Wrap(services.ErrMixing, "mixing", "build manifest",
				fmt.Sprintf("clip path %q is not absolute", c.Path), nil)
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeManifestPath(c.Path))
	}
	return b.String(), nil
}

// escapeManifestPath quotes single quotes for ffmpeg's concat demuxer.
func escapeManifestPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
