package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/open-edge-platform/cellar-sync/internal/utils/logger"
	"github.com/open-edge-platform/cellar-sync/internal/utils/shell"
)

// Archiver packs entry, a path relative to sourceDir, into a compressed
// tarball whose members are rooted at sourceDir.
type Archiver interface {
	Archive(ctx context.Context, sourceDir, entry string) (*Blob, error)
	Compression() Compression
}

// New returns the archiver for c. Bzip2 shells out to tar; the other codecs
// are written in-process.
func New(c Compression, tempDir string) Archiver {
	if c == Bzip2 {
		return &TarArchiver{TempDir: tempDir}
	}
	return &NativeArchiver{Codec: c, TempDir: tempDir}
}

// TarArchiver runs the host tar binary with bzip2 compression.
type TarArchiver struct {
	TempDir string
	// Executor defaults to shell.Default.
	Executor shell.Executor
}

func (a *TarArchiver) Compression() Compression { return Bzip2 }

func (a *TarArchiver) Archive(ctx context.Context, sourceDir, entry string) (*Blob, error) {
	log := logger.Logger()

	if err := checkEntry(sourceDir, entry); err != nil {
		return nil, err
	}

	tmpPath, err := reserveTemp(a.TempDir, Bzip2)
	if err != nil {
		return nil, err
	}

	executor := a.Executor
	if executor == nil {
		executor = shell.Default
	}

	log.Debugf("Packing %s from %s into %s", entry, sourceDir, tmpPath)
	if _, err := executor.Exec(ctx, "tar", "-C", sourceDir, "-cjf", tmpPath, entry); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("packing %s: %w", entry, err)
	}

	return OpenBlob(tmpPath)
}

func checkEntry(sourceDir, entry string) error {
	full := filepath.Join(sourceDir, entry)
	info, err := os.Stat(full)
	if err != nil {
		return fmt.Errorf("archive source %s: %w", full, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("archive source %s is not a directory", full)
	}
	return nil
}

// reserveTemp creates an empty temp file and returns its path.
func reserveTemp(tempDir string, c Compression) (string, error) {
	f, err := os.CreateTemp(tempDir, "cellar-sync-*."+c.Extension())
	if err != nil {
		return "", fmt.Errorf("creating temp archive: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("creating temp archive: %w", err)
	}
	return path, nil
}
