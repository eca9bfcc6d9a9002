package predictor

import "fmt"

// Variant describes the label layout of a loaded model.
type Variant int

const (
	VariantUnknown Variant = iota
	// ThreeClass models emit negative, neutral, positive.
	ThreeClass
	// FiveClassCollapsed models emit 1..5 star ratings that are folded
	// into three sentiment buckets.
	FiveClassCollapsed
)

func (v Variant) String() string {
	switch v {
	case ThreeClass:
		return "three_class"
	case FiveClassCollapsed:
		return "five_class_collapsed"
	default:
		return "unknown"
	}
}

// Classes is the number of output classes the variant expects.
func (v Variant) Classes() int {
	switch v {
	case ThreeClass:
		return 3
	case FiveClassCollapsed:
		return 5
	default:
		return 0
	}
}

// VariantForClasses picks the variant matching a model's class count.
func VariantForClasses(n int) (Variant, error) {
	switch n {
	case 3:
		return ThreeClass, nil
	case 5:
		return FiveClassCollapsed, nil
	default:
		return VariantUnknown, fmt.Errorf("unsupported number of classes: %d", n)
	}
}
