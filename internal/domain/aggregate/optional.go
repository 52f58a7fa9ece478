package aggregate

import "strconv"

// Optional is an aggregate value that may be undefined because no prior row
// (or no valid input) existed. Undefined is distinct from zero and survives
// until the feature assembler applies its fallback chain.
type Optional struct {
	Value float64
	Valid bool
}

// Some returns a defined value.
func Some(v float64) Optional { return Optional{Value: v, Valid: true} }

// None returns the undefined marker.
func None() Optional { return Optional{} }

// mean returns sum/n, undefined when n is zero.
func mean(sum float64, n int) Optional {
	if n == 0 {
		return None()
	}
	return Some(sum / float64(n))
}

// Or returns o when defined, otherwise fallback.
func (o Optional) Or(fallback Optional) Optional {
	if o.Valid {
		return o
	}
	return fallback
}

// OrZero resolves o to a number, 0 when undefined.
func (o Optional) OrZero() float64 {
	if o.Valid {
		return o.Value
	}
	return 0
}

func (o Optional) String() string {
	if !o.Valid {
		return "undefined"
	}
	return strconv.FormatFloat(o.Value, 'g', -1, 64)
}
