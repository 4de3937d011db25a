package fileutil

import (
	"fmt"
	"os"
)

// VerifyArtifact checks that path exists, is a regular file, has non-zero
// size, and can be opened for reading. Pipelines call this before marking a
// clip valid and again immediately before referencing it in a manifest; a
// clip that passed once can still vanish between stages.
func VerifyArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat artifact %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("artifact %s is not a regular file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("artifact %s is empty", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact %s: %w", path, err)
	}
	return f.Close()
}

// WriteFileAtomic writes data to path via a temporary sibling file and rename,
// so a crash never leaves a truncated artifact at the final location.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
