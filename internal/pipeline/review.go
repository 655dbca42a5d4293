// file: internal/pipeline/review.go
// version: 1.0.0
// guid: 5a2d8c4f-7e1b-4d9a-b8f5-3c6e9a2d5f8b

package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveReview appends this run's ambiguous matches to the review queue
// file, creating it if needed. The queue is plain JSON so operators can
// inspect it directly.
func SaveReview(path string, items []ReviewItem) error {
	if len(items) == 0 {
		return nil
	}
	existing, err := LoadReview(path)
	if err != nil {
		return err
	}
	existing = append(existing, items...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("review: %w", err)
	}
	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("review: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("review: write: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadReview reads the review queue; a missing file is an empty queue.
func LoadReview(path string) ([]ReviewItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("review: read: %w", err)
	}
	var items []ReviewItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("review: parse %s: %w", path, err)
	}
	return items, nil
}
