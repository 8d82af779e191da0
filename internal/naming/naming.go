// Package naming derives the object keys archives are stored under.
//
// Keys are namespaced by the OS version they were built on and by the
// location of the Homebrew install root, so machines with a relocated
// prefix never share binaries with machines using a standard one:
//
//	homebrew/<segment><os-version>/<name>-<version>.<ext>
//	rubies/<platform>/<segment><os-version>/<version>.<ext>
package naming

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
)

const (
	// CanonicalRoot is the standard Homebrew prefix; it gets no segment.
	CanonicalRoot = "/usr/local"
	// LegacyDefaultRoot is the prefix older installs used.
	LegacyDefaultRoot = "/opt/boxen/homebrew"
	// LegacyDefaultSegment is the segment for LegacyDefaultRoot.
	LegacyDefaultSegment = "default/"

	PackagePrefix     = "homebrew"
	InterpreterPrefix = "rubies"
)

// Kind distinguishes the two artifact families.
type Kind int

const (
	Package Kind = iota
	Interpreter
)

func (k Kind) String() string {
	switch k {
	case Package:
		return "package"
	case Interpreter:
		return "interpreter"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Ref identifies one installed artifact. Interpreters only carry a Version.
type Ref struct {
	Name    string
	Version string
}

func (r Ref) String() string {
	if r.Name == "" {
		return r.Version
	}
	return r.Name + "/" + r.Version
}

// LocationSegment maps an install root to the key segment placed in front of
// the OS version. Custom roots are encoded with the URL-safe base64 alphabet
// so the segment never introduces an extra path level.
func LocationSegment(installRoot string) string {
	root := filepath.Clean(installRoot)
	switch root {
	case CanonicalRoot:
		return ""
	case LegacyDefaultRoot:
		return LegacyDefaultSegment
	default:
		return base64.URLEncoding.EncodeToString([]byte(root)) + "/"
	}
}

// PackageKey returns the key for a cellar keg.
func PackageKey(ref Ref, osVersion, installRoot, ext string) string {
	return fmt.Sprintf("%s/%s%s/%s-%s.%s",
		PackagePrefix, LocationSegment(installRoot), osVersion, ref.Name, ref.Version, ext)
}

// InterpreterKey returns the key for an interpreter installation.
func InterpreterKey(platform, version, osVersion, installRoot, ext string) string {
	return fmt.Sprintf("%s/%s/%s%s/%s.%s",
		InterpreterPrefix, platform, LocationSegment(installRoot), osVersion, version, ext)
}

// Resolver binds the inputs that stay fixed for a run.
type Resolver struct {
	OSVersion   string
	Platform    string
	InstallRoot string
	Extension   string
}

func (r Resolver) Package(name, version string) string {
	return PackageKey(Ref{Name: name, Version: version}, r.OSVersion, r.InstallRoot, r.Extension)
}

func (r Resolver) Interpreter(version string) string {
	return InterpreterKey(r.Platform, version, r.OSVersion, r.InstallRoot, r.Extension)
}

// Resolve returns the key for ref of the given kind.
func (r Resolver) Resolve(kind Kind, ref Ref) string {
	if kind == Interpreter {
		return r.Interpreter(ref.Version)
	}
	return r.Package(ref.Name, ref.Version)
}
