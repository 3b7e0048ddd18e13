package session

import "math"

// Projection is the two-slice split of a correct/total proportion.
type Projection struct {
	// NoData is set when there is nothing to split; the sweeps are zero.
	NoData       bool
	Start        float64
	CorrectSweep float64
	WrongSweep   float64
}

// Project maps correct/total onto angular sweeps in radians starting at 0.
func Project(correct, total int) Projection {
	if total <= 0 {
		return Projection{NoData: true}
	}
	sweep := 2 * math.Pi * float64(correct) / float64(total)
	return Projection{
		CorrectSweep: sweep,
		WrongSweep:   2*math.Pi - sweep,
	}
}

// Percentages returns the rounded correct and wrong shares of the circle.
func (p Projection) Percentages() (correct, wrong int) {
	if p.NoData {
		return 0, 0
	}
	correct = int(math.Round(100 * p.CorrectSweep / (2 * math.Pi)))
	return correct, 100 - correct
}
