package performance

import (
	"math"
	"time"

	"github.com/pkozlov/basistrack/pkg/money"
)

const (
	irrInitialGuess  = 0.10
	irrTolerance     = 1e-10
	irrMaxIterations = 100
	irrMinRate       = -0.99
	irrMaxRate       = 10.0
)

// IrrResult is the money-weighted return found by Newton-Raphson, as a
// decimal fraction.
type IrrResult struct {
	Irr        float64
	Converged  bool
	Iterations int
}

// irrFlow is a dated amount in the NPV equation. Investor contributions are
// negative (money leaving the investor's pocket), the terminal value
// positive.
type irrFlow struct {
	years  float64
	amount float64
}

// Irr solves for the rate r where the net present value of the external
// flows plus the terminal portfolio value is zero. Time is measured in
// 365-day years from the first flow. The rate is clamped to
// [-0.99, 10.0] between iterations; a near-zero derivative aborts with
// Converged false rather than dividing by it.
func Irr(flows []CashFlow, terminalValue money.Cents, terminalDate time.Time) IrrResult {
	if len(flows) == 0 {
		return IrrResult{}
	}

	first := flows[0].Date
	npvFlows := make([]irrFlow, 0, len(flows)+1)
	for _, f := range flows {
		npvFlows = append(npvFlows, irrFlow{
			years:  yearsBetween(first, f.Date),
			amount: -float64(f.Amount),
		})
	}
	npvFlows = append(npvFlows, irrFlow{
		years:  yearsBetween(first, terminalDate),
		amount: float64(terminalValue),
	})

	rate := irrInitialGuess
	for i := 1; i <= irrMaxIterations; i++ {
		npv, derivative := npvAt(npvFlows, rate)
		if math.Abs(derivative) < irrTolerance {
			return IrrResult{Irr: rate, Converged: false, Iterations: i}
		}
		next := rate - npv/derivative
		next = math.Max(irrMinRate, math.Min(irrMaxRate, next))
		if math.Abs(next-rate) < irrTolerance {
			return IrrResult{Irr: next, Converged: true, Iterations: i}
		}
		rate = next
	}
	return IrrResult{Irr: rate, Converged: false, Iterations: irrMaxIterations}
}

func npvAt(flows []irrFlow, rate float64) (npv, derivative float64) {
	for _, f := range flows {
		discount := math.Pow(1+rate, f.years)
		npv += f.amount / discount
		derivative -= f.years * f.amount / (discount * (1 + rate))
	}
	return npv, derivative
}

func yearsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / 365
}
