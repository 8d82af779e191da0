package logger

import (
	"fmt"
	"os"
	"path/filepath"
)

// StringListReport is a titled list written one item per line.
type StringListReport struct {
	Title string
	Items []string
}

// WriteToFile appends the report to <dir>/sync-<title>.txt followed by a
// blank line, creating dir if needed, and returns the file path.
func (r StringListReport) WriteToFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	title := r.Title
	if title == "" {
		title = "untitled"
	}
	// Replace spaces and special characters with underscores
	safeTitle := ""
	for _, c := range title {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			safeTitle += string(c)
		} else {
			safeTitle += "_"
		}
	}

	reportFullPath := filepath.Join(dir, fmt.Sprintf("sync-%s.txt", safeTitle))

	f, err := os.OpenFile(reportFullPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	for _, item := range r.Items {
		if _, err := fmt.Fprintln(f, item); err != nil {
			return "", fmt.Errorf("writing to file: %w", err)
		}
	}
	if _, err := fmt.Fprintln(f); err != nil {
		return "", fmt.Errorf("writing new line to file: %w", err)
	}

	return reportFullPath, f.Close()
}
