// Package export burns submitted values into the original PDF bytes of a template.
//
// Field coordinates are PDF points with a top-left origin; PDF page space has a
// bottom-left origin, so every stamp is placed at drawY = pageHeight - y - offset.
package export

import (
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/font"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

const (
	// DefaultFont is the standard 14 font used for every stamp
	DefaultFont = "Helvetica"

	checkMark       = "X"
	checkMarkScale  = 0.7
	checkMarkInset  = 0.2
	checkMarkOffset = 0.8
	lineSpacing     = 1.2
)

// Stamp is one line of text drawn onto a page. X and Y locate the baseline start in
// PDF page space.
type Stamp struct {
	FieldID  string  `json:"fieldId"`
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize"`
	Text     string  `json:"text"`
}

// Plan computes the stamps for fields given the page sizes of the target document.
// Fields without a value, with an empty value, with an unchecked checkbox value or on
// a page outside the document are skipped.
func Plan(fields []form.Field, values form.Values, pages []form.Size) []Stamp {
	var stamps []Stamp
	for _, f := range fields {
		idx := f.Page - 1
		if idx < 0 || idx >= len(pages) {
			continue
		}
		v, ok := values.Lookup(f)
		if !ok {
			continue
		}
		pageHeight := pages[idx].Height

		if f.Type == form.FieldTypeCheckbox {
			if !v.Checked() {
				continue
			}
			stamps = append(stamps, Stamp{
				FieldID:  f.ID,
				Page:     f.Page,
				X:        f.X + f.Width*checkMarkInset,
				Y:        pageHeight - f.Y - f.Height*checkMarkOffset,
				FontSize: f.Height * checkMarkScale,
				Text:     checkMark,
			})
			continue
		}

		if v.IsEmpty() {
			continue
		}
		size := f.EffectiveFontSize()
		baseline := pageHeight - f.Y - size
		for i, line := range Wrap(v.String(), f.Width, size) {
			if strings.TrimSpace(line) == "" {
				continue
			}
			stamps = append(stamps, Stamp{
				FieldID:  f.ID,
				Page:     f.Page,
				X:        f.X,
				Y:        baseline - float64(i)*size*lineSpacing,
				FontSize: size,
				Text:     line,
			})
		}
	}
	return stamps
}

// TextWidth measures s in the stamp font at size points
func TextWidth(s string, size float64) float64 {
	// metrics are exact at 1000 units per em
	return font.TextWidth(s, DefaultFont, 1000) * size / 1000
}

// Wrap breaks text into lines no wider than maxWidth at the given font size.
// Explicit newlines are kept; words wider than a line are split between characters.
func Wrap(text string, maxWidth, size float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, w := range words {
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if maxWidth <= 0 || TextWidth(candidate, size) <= maxWidth {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
			line = ""
			for _, part := range splitWord(w, maxWidth, size) {
				if line != "" {
					lines = append(lines, line)
				}
				line = part
			}
		}
		lines = append(lines, line)
	}
	return lines
}

func splitWord(w string, maxWidth, size float64) []string {
	if TextWidth(w, size) <= maxWidth {
		return []string{w}
	}
	var parts []string
	var cur []rune
	for _, r := range w {
		if len(cur) > 0 && TextWidth(string(append(cur, r)), size) > maxWidth {
			parts = append(parts, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}
