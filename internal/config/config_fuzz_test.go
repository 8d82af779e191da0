package config

import (
	"os"
	"testing"
)

// FuzzLoadFile tests LoadFile with various file inputs
func FuzzLoadFile(f *testing.F) {
	f.Add("bucket: my-bucket\nregion: eu-west-1\n")
	f.Add("{}")
	f.Add("")
	f.Add("invalid: yaml: content: [")
	f.Add("logging:\n  level: debug\n")
	f.Add("dry_run: maybe")
	f.Add("---\nbucket: a\n---\nbucket: b")
	f.Add("bucket: null\nregion: null")
	f.Add("homebrew_root: /opt/boxen/homebrew\nextra_field: ignored")

	f.Fuzz(func(t *testing.T, yamlContent string) {
		tempFile := t.TempDir() + "/config.yaml"
		if err := writeTestFile(tempFile, yamlContent); err != nil {
			t.Skip("Failed to create temp file")
		}

		// Should not crash regardless of input
		cfg := DefaultGlobalConfig()
		_ = cfg.LoadFile(tempFile)
		_ = cfg.Validate()
	})
}

// writeTestFile is a helper to write content to a file for testing
func writeTestFile(path, content string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(content)
	return err
}
