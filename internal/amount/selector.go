package amount

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// Selector holds the donation amount picked on the landing page: one of
// the preset buttons or a free-text custom value.
type Selector struct {
	presets []int64
	preset  int64
	custom  string
}

func NewSelector(presets []int64, initial int64) *Selector {
	p := make([]int64, len(presets))
	copy(p, presets)
	return &Selector{presets: p, preset: initial}
}

func (s *Selector) Presets() []int64 {
	out := make([]int64, len(s.presets))
	copy(out, s.presets)
	return out
}

// SelectPreset picks a preset and clears the custom field.
func (s *Selector) SelectPreset(v int64) {
	s.preset = v
	s.custom = ""
}

func (s *Selector) SetCustom(text string) {
	s.custom = text
}

func (s *Selector) Custom() string { return s.custom }

// Selected reports whether preset v is highlighted, i.e. chosen while the
// custom field is empty.
func (s *Selector) Selected(v int64) bool {
	return s.custom == "" && s.preset == v
}

// Effective returns the integer amount to charge, or 0 when nothing valid
// is entered. A non-empty custom field always decides, even when invalid.
func (s *Selector) Effective() int64 {
	if s.custom != "" {
		return ParseCustom(s.custom)
	}
	if s.preset > 0 {
		return s.preset
	}
	return 0
}

func (s *Selector) CanCreate() bool {
	return s.Effective() > 0
}

// ParseCustom converts free text to a positive whole amount, rounding half
// away from zero. Anything unparseable, non-positive or out of range is 0.
func ParseCustom(text string) int64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	r := d.Round(0)
	if r.GreaterThan(maxAmount) {
		return 0
	}
	return r.IntPart()
}
