package projection

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is wrapped by every error Validate returns
var ErrInvalidInput = errors.New("invalid projection input")

// InputError names the offending field
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// Validate rejects input Project would accept but a caller should never ask
// for. Negative escalation is allowed down to (but excluding) -100%, which
// would zero out the bill after one year.
func (in Input) Validate() error {
	switch {
	case !isFinite(in.CurrentMonthlyBill):
		return &InputError{"current_monthly_bill", "must be a finite number"}
	case in.CurrentMonthlyBill <= 0:
		return &InputError{"current_monthly_bill", "must be greater than zero"}
	case !isFinite(in.FlatRate):
		return &InputError{"flat_rate", "must be a finite number"}
	case in.FlatRate <= 0:
		return &InputError{"flat_rate", "must be greater than zero"}
	case !isFinite(in.AnnualIncreasePct):
		return &InputError{"annual_increase_pct", "must be a finite number"}
	case in.AnnualIncreasePct <= -100:
		return &InputError{"annual_increase_pct", "must be greater than -100"}
	case in.AnnualIncreasePct > MaxAnnualIncreasePct:
		return &InputError{"annual_increase_pct", fmt.Sprintf("must be at most %.0f", MaxAnnualIncreasePct)}
	case in.HorizonYears < 1:
		return &InputError{"horizon_years", "must be at least 1"}
	case in.HorizonYears > MaxHorizonYears:
		return &InputError{"horizon_years", fmt.Sprintf("must be at most %d", MaxHorizonYears)}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
