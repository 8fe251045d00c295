/*
Copyright © 2026 the microgrid authors.
This file is part of microgrid.

microgrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

microgrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with microgrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package microgrid

import "math"

// Index holds the sizes of the index sets of a model and the mapping from
// years to investment steps. All indices are zero-based.
type Index struct {
	Scenarios  int
	Years      int
	Periods    int
	Steps      int
	Renewables int
	Generators int

	stepOf []int
	start  []int
	rate   float64
}

// YearStep pairs a year with the investment step it belongs to.
type YearStep struct {
	Year, Step int
}

// NewIndex derives the index sets of p. Years are grouped into steps of
// p.StepDuration years; a trailing remainder becomes its own step if it is
// at least p.MinLastStepDuration years long and is merged into the
// previous step otherwise. Discount factors use the rate in effect for cfg.
func NewIndex(cfg *Config, p *Parameters) (*Index, error) {
	d, y := p.StepDuration, p.Years
	if d < 1 || d > y {
		return nil, rangeErr("step duration must be in [1, %d], got %d", y, d)
	}
	steps := y / d
	if rem := y % d; rem > 0 && rem >= p.MinLastStepDuration {
		steps++
	}
	if p.InvestmentSteps > 0 && p.InvestmentSteps != steps {
		return nil, configErr("%d investment steps were given, but %d years with a step duration of %d "+
			"and a minimum last step duration of %d make %d steps",
			p.InvestmentSteps, y, d, p.MinLastStepDuration, steps)
	}
	ix := &Index{
		Scenarios:  p.Scenarios,
		Years:      y,
		Periods:    p.Periods,
		Steps:      steps,
		Renewables: len(p.Renewables),
		Generators: len(p.Generators),
		stepOf:     make([]int, y),
		start:      make([]int, steps),
		rate:       p.Rate(cfg),
	}
	for st := range ix.start {
		ix.start[st] = st * d
	}
	for yr := range ix.stepOf {
		ix.stepOf[yr] = min(yr/d, steps-1)
	}
	return ix, nil
}

// StepOf returns the investment step of year y.
func (ix *Index) StepOf(y int) int { return ix.stepOf[y] }

// StepStart returns the first year of step st.
func (ix *Index) StepStart(st int) int { return ix.start[st] }

// StepYears returns the years that belong to step st.
func (ix *Index) StepYears(st int) []int {
	end := ix.Years
	if st+1 < ix.Steps {
		end = ix.start[st+1]
	}
	years := make([]int, 0, end-ix.start[st])
	for y := ix.start[st]; y < end; y++ {
		years = append(years, y)
	}
	return years
}

// YearsSteps returns every year paired with its step.
func (ix *Index) YearsSteps() []YearStep {
	o := make([]YearStep, ix.Years)
	for y := range o {
		o[y] = YearStep{Year: y, Step: ix.stepOf[y]}
	}
	return o
}

// Rate returns the discount rate.
func (ix *Index) Rate() float64 { return ix.rate }

// discount returns 1/(1+r)^k.
func (ix *Index) discount(k int) float64 {
	return math.Pow(1+ix.rate, -float64(k))
}

// YearFactor returns the discount factor of the costs of year y, which
// are counted at the end of the year.
func (ix *Index) YearFactor(y int) float64 { return ix.discount(y + 1) }

// StepFactor returns the discount factor of investments made at the start
// of step st.
func (ix *Index) StepFactor(st int) float64 { return ix.discount(ix.start[st]) }

// HorizonFactor returns the discount factor at the end of the horizon.
func (ix *Index) HorizonFactor() float64 { return ix.discount(ix.Years) }
