package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/open-edge-platform/cellar-sync/internal/utils/logger"
)

// NativeArchiver writes the tar stream in-process and compresses it with
// gzip, zstd or xz.
type NativeArchiver struct {
	Codec   Compression
	TempDir string
}

func (a *NativeArchiver) Compression() Compression { return a.Codec }

func (a *NativeArchiver) Archive(ctx context.Context, sourceDir, entry string) (*Blob, error) {
	log := logger.Logger()

	if err := checkEntry(sourceDir, entry); err != nil {
		return nil, err
	}

	tmpPath, err := reserveTemp(a.TempDir, a.Codec)
	if err != nil {
		return nil, err
	}

	log.Debugf("Packing %s from %s into %s (%s)", entry, sourceDir, tmpPath, a.Codec)
	if err := a.pack(ctx, tmpPath, sourceDir, entry); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("packing %s: %w", entry, err)
	}

	return OpenBlob(tmpPath)
}

func (a *NativeArchiver) pack(ctx context.Context, dst, sourceDir, entry string) error {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	cw, err := newCompressor(a.Codec, out)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(cw)
	if err := writeTree(ctx, tw, sourceDir, entry); err != nil {
		cw.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		cw.Close()
		return fmt.Errorf("finishing tar stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("finishing %s stream: %w", a.Codec, err)
	}
	return out.Close()
}

func newCompressor(c Compression, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	case Xz:
		return xz.NewWriter(w)
	default:
		return nil, fmt.Errorf("compression %q is not supported in-process", c)
	}
}

// writeTree adds sourceDir/entry and everything below it to tw. Member names
// are relative to sourceDir so the archive unpacks as entry/...
func writeTree(ctx context.Context, tw *tar.Writer, sourceDir, entry string) error {
	root := filepath.Join(sourceDir, entry)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("tar header for %s: %w", path, err)
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing header for %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	})
}
