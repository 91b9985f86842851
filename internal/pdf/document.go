package pdf

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/ledongthuc/pdf"
)

// Document is the raw bytes of one PDF, fetched once and shared by rendering and
// export. The bytes must not be modified.
type Document struct {
	URL   string
	Bytes []byte

	once     sync.Once
	geometry Geometry
	err      error
}

// NewDocument wraps b as the content of url
func NewDocument(url string, b []byte) *Document {
	return &Document{URL: url, Bytes: b}
}

// Size returns the document size in bytes
func (d *Document) Size() int { return len(d.Bytes) }

// Digest returns the hex SHA-256 of the bytes
func (d *Document) Digest() string {
	sum := sha256.Sum256(d.Bytes)
	return hex.EncodeToString(sum[:])
}

func (d *Document) reader() (*pdf.Reader, error) {
	return pdf.NewReader(bytes.NewReader(d.Bytes), int64(len(d.Bytes)))
}
