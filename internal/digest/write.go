package digest

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the digest written into the output directory.
const FileName = "trends-latest.md"

// Write renders d and replaces <dir>/trends-latest.md. It returns the path.
func Write(dir string, d Data) (string, error) {
	out, err := Render(d)
	if err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(out), 0o644); err != nil {
		return "", fmt.Errorf("write digest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("replace digest: %w", err)
	}
	return path, nil
}
