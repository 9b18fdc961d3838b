package accessory

import "github.com/teslashibe/go-tryon/pkg/landmark"

// EarringScale shrinks the inter-eye reference for earrings.
const EarringScale = 0.3

// Anchor is where an accessory attaches and how large it should be.
type Anchor struct {
	Point    landmark.Point `json:"point"`
	ScaleRef float64        `json:"scale_ref"` // Reference distance times the scale factor
}

// Resolve picks the anchor point and scale reference for a category.
// Unknown categories use the glasses rule.
func Resolve(category Category, kp *landmark.KeyPoints, meta Meta) Anchor {
	sf := meta.Scale()
	eyeSpan := landmark.Distance(kp.LeftEyeOuter, kp.RightEyeOuter)

	switch category {
	case Hat:
		return Anchor{
			Point:    kp.Forehead,
			ScaleRef: landmark.Distance(kp.LeftTemple, kp.RightTemple) * sf,
		}
	case EarringLeft:
		return Anchor{
			Point:    kp.LeftEarBottom,
			ScaleRef: eyeSpan * sf * EarringScale,
		}
	case EarringRight:
		return Anchor{
			Point:    kp.RightEarBottom,
			ScaleRef: eyeSpan * sf * EarringScale,
		}
	default:
		return Anchor{
			Point:    kp.NoseBridge,
			ScaleRef: eyeSpan * sf,
		}
	}
}
