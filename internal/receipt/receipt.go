package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the receipt Homebrew writes into every keg.
const FileName = "INSTALL_RECEIPT.json"

const (
	ReasonPrebuilt  = "already a prebuilt bottle"
	ReasonNotBottle = "not built as a bottle; rebuild it with HOMEBREW_BUILD_BOTTLE=1 set " +
		"(HOMEBREW_BUILD_BOTTLE=1 brew reinstall <formula>) before uploading"
)

// ErrInvalidReceipt is returned when a receipt exists but cannot be parsed.
var ErrInvalidReceipt = errors.New("invalid install receipt")

// Receipt holds the install receipt fields that decide eligibility. Other
// fields are ignored and missing ones read as false.
type Receipt struct {
	PouredFromBottle bool `json:"poured_from_bottle"`
	BuiltAsBottle    bool `json:"built_as_bottle"`
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Archive bool
	Reason  string
}

// Path returns the receipt location for a keg in cellar.
func Path(cellar, name, version string) string {
	return filepath.Join(cellar, name, version, FileName)
}

// Load reads and parses the receipt at path.
func Load(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading install receipt: %w", err)
	}
	return Parse(data)
}

// Parse decodes receipt JSON.
func Parse(data []byte) (*Receipt, error) {
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	return &r, nil
}

// Evaluate decides whether the keg described by r should be archived.
// Bottles poured from a prebuilt archive are never re-uploaded, and kegs
// built without HOMEBREW_BUILD_BOTTLE are not relocatable.
func Evaluate(r *Receipt) Decision {
	switch {
	case r.PouredFromBottle:
		return Decision{Reason: ReasonPrebuilt}
	case !r.BuiltAsBottle:
		return Decision{Reason: ReasonNotBottle}
	default:
		return Decision{Archive: true}
	}
}
