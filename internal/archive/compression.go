package archive

import (
	"fmt"
	"strings"
)

// Compression identifies the codec applied to the tar stream. The value is
// also the suffix of the archive extension.
type Compression string

const (
	Bzip2 Compression = "bz2"
	Gzip  Compression = "gz"
	Xz    Compression = "xz"
	Zstd  Compression = "zst"
)

// DefaultCompression matches the archives already published in the bucket.
const DefaultCompression = Bzip2

// ParseCompression parses a compression name. Both the short suffix form
// ("bz2") and the tool name ("bzip2") are accepted.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bz2", "bzip2":
		return Bzip2, nil
	case "gz", "gzip":
		return Gzip, nil
	case "xz":
		return Xz, nil
	case "zst", "zstd":
		return Zstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q (expected bz2, gz, xz or zst)", name)
	}
}

// Extension returns the file extension without a leading dot, e.g. "tar.bz2".
func (c Compression) Extension() string {
	return "tar." + string(c)
}

func (c Compression) String() string {
	return string(c)
}
