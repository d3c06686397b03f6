package cbom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidDocument is returned for input that is not a usable CycloneDX BOM.
var ErrInvalidDocument = errors.New("invalid cbom document")

const bomFormatCycloneDX = "CycloneDX"

// minSpecVersion is the first CycloneDX release whose services and
// dependencies layout the inventory relies on.
var minSpecVersion = semver.MustParse("1.4")

// Parse decodes and validates a CycloneDX JSON document.
func Parse(raw []byte) (*BOM, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	var bom BOM
	if err := json.Unmarshal(raw, &bom); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := bom.validate(); err != nil {
		return nil, err
	}
	return &bom, nil
}

// ParseReader is Parse over a reader.
func ParseReader(r io.Reader) (*BOM, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func (b *BOM) validate() error {
	if !strings.EqualFold(strings.TrimSpace(b.BOMFormat), bomFormatCycloneDX) {
		return fmt.Errorf("%w: bomFormat %q is not %s", ErrInvalidDocument, b.BOMFormat, bomFormatCycloneDX)
	}
	specVersion := strings.TrimSpace(b.SpecVersion)
	v, err := semver.NewVersion(specVersion)
	if err != nil {
		return fmt.Errorf("%w: specVersion %q: %v", ErrInvalidDocument, b.SpecVersion, err)
	}
	if v.LessThan(minSpecVersion) {
		return fmt.Errorf("%w: specVersion %s is older than %s", ErrInvalidDocument, specVersion, minSpecVersion.Original())
	}
	return nil
}

// FormatTag returns a short format label such as "cyclonedx-1.6".
func (b *BOM) FormatTag() string {
	version := strings.TrimSpace(b.SpecVersion)
	if version == "" {
		return "cyclonedx"
	}
	return "cyclonedx-" + version
}
