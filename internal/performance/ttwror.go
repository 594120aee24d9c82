package performance

import (
	"math"
	"time"
)

// SubPeriod is the flow-adjusted return factor between two consecutive
// valuation points, attributed to the end date of the period. A factor of
// 0.90 means the holdings lost 10% over the period once the day's external
// flows are stripped out.
type SubPeriod struct {
	Date   time.Time
	Return float64
}

// TtwrorResult is the true time-weighted rate of return over a valuation
// series, as decimal fractions (0.10 means +10%).
type TtwrorResult struct {
	TotalReturn      float64
	AnnualizedReturn float64
	Days             int
	Periods          []SubPeriod
}

// Ttwror chains sub-period returns geometrically over consecutive valuation
// points. External flows are treated as occurring at the end of their day:
// each flow is subtracted from the valuation on its own date, so the
// sub-period factor is (V_i - flow_i) / V_{i-1}. Sub-periods whose starting
// value is not positive are skipped. Annualization uses 365-day years and is
// only reported for series spanning at least one day.
func Ttwror(series []ValuationPoint, flows []CashFlow) TtwrorResult {
	if len(series) < 2 {
		return TtwrorResult{}
	}

	factor := 1.0
	periods := make([]SubPeriod, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Value
		if prev <= 0 {
			continue
		}
		adjusted := series[i].Value - flowOn(flows, series[i].Date)
		r := float64(adjusted) / float64(prev)
		factor *= r
		periods = append(periods, SubPeriod{Date: series[i].Date, Return: r})
	}

	days := int(series[len(series)-1].Date.Sub(series[0].Date).Hours() / 24)
	result := TtwrorResult{
		TotalReturn: factor - 1,
		Days:        days,
		Periods:     periods,
	}
	if days >= 1 && factor > 0 {
		result.AnnualizedReturn = math.Pow(factor, 365.0/float64(days)) - 1
	}
	return result
}
