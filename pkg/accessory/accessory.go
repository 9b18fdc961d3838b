// Package accessory describes wearable accessories and resolves where each
// one anchors on the face.
package accessory

import "strings"

// Category selects the anchor and scale reference used for an accessory.
type Category string

// Accessory categories.
const (
	Glasses      Category = "glasses"
	Hat          Category = "hat"
	EarringLeft  Category = "earring_left"
	EarringRight Category = "earring_right"
)

// DefaultCategory is used when none is given.
const DefaultCategory = Glasses

// Categories lists every known category.
func Categories() []Category {
	return []Category{Glasses, Hat, EarringLeft, EarringRight}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Glasses, Hat, EarringLeft, EarringRight:
		return true
	}
	return false
}

// ParseCategory normalizes a category name. Unknown or empty names map to
// glasses so bad external config never stops tracking.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return DefaultCategory
	}
	return c
}

// Meta holds per-accessory tuning constants. It is immutable once an
// accessory is selected.
type Meta struct {
	Category       Category `json:"type"`
	VerticalOffset float64  `json:"offset_y" validate:"gte=-5,lte=5"`
	DepthOffset    float64  `json:"offset_z" validate:"gte=-5,lte=5"`
	ScaleFactor    float64  `json:"scale_factor" validate:"gte=0,lte=10"`
}

// DefaultMeta returns glasses with neutral offsets.
func DefaultMeta() Meta {
	return Meta{Category: DefaultCategory, ScaleFactor: 1.0}
}

// Scale returns the scale factor, 1.0 when unset.
func (m Meta) Scale() float64 {
	if m.ScaleFactor == 0 {
		return 1.0
	}
	return m.ScaleFactor
}
