package datasource

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// MaxDocumentSize caps a decompressed document.
const MaxDocumentSize = 256 << 20

// Document is one raw CBOM document fetched from a source.
type Document struct {
	SourceID    string
	Name        string
	Raw         []byte
	Fingerprint string
	FetchedAt   time.Time
}

// NewDocument decompresses raw when needed and fingerprints the result.
func NewDocument(sourceID, name string, raw []byte, fetchedAt time.Time) (Document, error) {
	content, err := Decompress(raw)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", name, err)
	}
	return Document{
		SourceID:    sourceID,
		Name:        name,
		Raw:         content,
		Fingerprint: Fingerprint(content),
		FetchedAt:   fetchedAt.UTC(),
	}, nil
}

// Fingerprint is the hex BLAKE3-256 digest of content.
func Fingerprint(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FingerprintSet combines document fingerprints into one digest that changes
// whenever any document of a source changes.
func FingerprintSet(docs []Document) string {
	h := blake3.New()
	for _, d := range docs {
		_, _ = io.WriteString(h, d.Name)
		_, _ = h.Write([]byte{0})
		_, _ = io.WriteString(h, d.Fingerprint)
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Decompress inflates gzip or zstd content, detected by magic bytes. Other
// content is returned unchanged.
func Decompress(raw []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(raw, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		return readLimited(zr, "gzip")
	case bytes.HasPrefix(raw, zstdMagic):
		zr, err := zstd.NewReader(bytes.NewReader(raw), zstd.WithDecoderMaxMemory(MaxDocumentSize))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		return readLimited(zr, "zstd")
	default:
		return raw, nil
	}
}

func readLimited(r io.Reader, codec string) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", codec, err)
	}
	if len(out) > MaxDocumentSize {
		return nil, fmt.Errorf("%s: document exceeds %d bytes", codec, MaxDocumentSize)
	}
	return out, nil
}
