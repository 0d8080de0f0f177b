package config

// Specification of how chronology depth cutoffs are applied to exported data.
// ENUM(none, trim, flag)
type CutoffMode int

func (c CutoffMode) Destructive() bool {
	return c == CutoffModeTrim
}
