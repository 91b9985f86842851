package overlay

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontBank hands out Go Regular faces by pixel size. Faces are cached per size,
// quantized to half pixels, and must only be used while holding the bank's lock.
type FontBank struct {
	mu    sync.Mutex
	font  *opentype.Font
	faces map[float64]font.Face
}

// NewFontBank parses the embedded Go Regular font
func NewFontBank() (*FontBank, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "parse goregular")
	}
	return &FontBank{font: f, faces: make(map[float64]font.Face)}, nil
}

var (
	defaultBank     *FontBank
	defaultBankOnce sync.Once
)

// DefaultFontBank returns the process-wide bank. It is nil-safe: if the embedded font
// cannot be parsed every face falls back to basicfont.
func DefaultFontBank() *FontBank {
	defaultBankOnce.Do(func() {
		b, err := NewFontBank()
		if err != nil {
			b = &FontBank{faces: make(map[float64]font.Face)}
		}
		defaultBank = b
	})
	return defaultBank
}

// Lock acquires the bank for drawing; faces are not safe for concurrent use
func (b *FontBank) Lock()   { b.mu.Lock() }
func (b *FontBank) Unlock() { b.mu.Unlock() }

// Face returns a face of the given pixel size. The caller must hold the lock.
func (b *FontBank) Face(size float64) font.Face {
	size = math.Round(size*2) / 2
	if size < 1 {
		size = 1
	}
	if face, ok := b.faces[size]; ok {
		return face
	}
	var face font.Face = basicfont.Face7x13
	if b.font != nil {
		f, err := opentype.NewFace(b.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
		if err == nil {
			face = f
		}
	}
	b.faces[size] = face
	return face
}
