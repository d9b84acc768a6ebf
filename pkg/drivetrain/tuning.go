package drivetrain

import (
	"github.com/tigerbot-team/tigerbot/go-courserunner/pkg/tunable"
)

const (
	DefaultOffset           = 8.0
	DefaultCorrectionMargin = 100
	DefaultCorrectionStep   = DefaultOffset / 3.0
	DefaultSwitchPower      = 15
)

// Tunable names, as used in config files.
const (
	TunableOffset                  = "offset"
	TunablePrimaryForwardDivisor   = "offset_divisor_primary_forward"
	TunablePrimaryBackwardDivisor  = "offset_divisor_primary_backward"
	TunableAlternateForwardDivisor = "offset_divisor_alternate_forward"
	TunableAlternateBackDivisor    = "offset_divisor_alternate_backward"
	TunableCorrectionMargin        = "correction_margin"
	TunableCorrectionStep          = "correction_step"
	TunableSwitchPower             = "switch_power"
)

// Tuning holds the hand-tuned skew compensation for the drivetrain.  The
// offset divisors differ by orientation and direction; the values were
// found on the course, not derived.
type Tuning struct {
	offset           *tunable.Tunable
	divisors         [2][2]*tunable.Tunable // [orientation][forward, backward]
	CorrectionMargin *tunable.Tunable
	CorrectionStep   *tunable.Tunable
	SwitchPower      *tunable.Tunable
}

func NewTuning(t *tunable.Tunables) *Tuning {
	tuning := &Tuning{
		offset:           t.Create(TunableOffset, DefaultOffset),
		CorrectionMargin: t.Create(TunableCorrectionMargin, DefaultCorrectionMargin),
		CorrectionStep:   t.Create(TunableCorrectionStep, DefaultCorrectionStep),
		SwitchPower:      t.Create(TunableSwitchPower, DefaultSwitchPower),
	}
	tuning.divisors[Primary][0] = t.Create(TunablePrimaryForwardDivisor, 1)
	tuning.divisors[Primary][1] = t.Create(TunablePrimaryBackwardDivisor, 3)
	tuning.divisors[Alternate][0] = t.Create(TunableAlternateForwardDivisor, 3)
	tuning.divisors[Alternate][1] = t.Create(TunableAlternateBackDivisor, 1)
	return tuning
}

// Offset is the power added to the corrected pair for a translation.
func (t *Tuning) Offset(o Orientation, motion Motion) float64 {
	if o != Primary && o != Alternate {
		return 0
	}
	dir := 0
	if motion == Backward {
		dir = 1
	}
	divisor := t.divisors[o][dir].Get()
	if divisor == 0 {
		return 0
	}
	return t.offset.Get() / divisor
}
