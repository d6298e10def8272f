package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SaveRunLog writes the terminal run state to a timestamped JSON file under
// dataDir and returns the file path. The log is for humans; nothing in the
// pipeline reads it back.
func SaveRunLog(dataDir string, state RunState) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	filename := fmt.Sprintf("search_log_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(dataDir, filename)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode run state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write run log: %w", err)
	}
	return path, nil
}
