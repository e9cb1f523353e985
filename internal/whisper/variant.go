package whisper

import "fmt"

// Variant names one size/accuracy tradeoff point of the recognition model.
type Variant string

const (
	VariantTiny   Variant = "tiny"
	VariantBase   Variant = "base"
	VariantSmall  Variant = "small"
	VariantMedium Variant = "medium"
	VariantLarge  Variant = "large"
)

// Variants lists the supported model sizes from fastest to most accurate.
func Variants() []Variant {
	return []Variant{VariantTiny, VariantBase, VariantSmall, VariantMedium, VariantLarge}
}

// ParseVariant validates a user-supplied model size.
func ParseVariant(s string) (Variant, error) {
	v := Variant(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown model size %q", s)
	}
	return v, nil
}

func (v Variant) Valid() bool {
	switch v {
	case VariantTiny, VariantBase, VariantSmall, VariantMedium, VariantLarge:
		return true
	}
	return false
}

// WeightFile returns the ggml weight file name for the variant.
func (v Variant) WeightFile() string {
	if v == VariantLarge {
		return "ggml-large-v3.bin"
	}
	return fmt.Sprintf("ggml-%s.bin", string(v))
}

// SizeLabel gives a rough on-disk size for display purposes.
func (v Variant) SizeLabel() string {
	switch v {
	case VariantTiny:
		return "~75 MB"
	case VariantBase:
		return "~142 MB"
	case VariantSmall:
		return "~466 MB"
	case VariantMedium:
		return "~1.5 GB"
	case VariantLarge:
		return "~2.9 GB"
	}
	return ""
}

// Description summarizes the speed/accuracy tradeoff of the variant.
func (v Variant) Description() string {
	switch v {
	case VariantTiny, VariantBase:
		return "faster on CPU, less accurate"
	case VariantSmall, VariantMedium:
		return "better accuracy; use GPU if available"
	case VariantLarge:
		return "best accuracy but heavy on RAM/GPU"
	}
	return ""
}
