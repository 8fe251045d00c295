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

package mgutil

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SimulateAvailability returns a [scenario][year][period] grid
// availability series for hourly periods. Each year has a Poisson number
// of outages with mean outagesPerYear, scaled to the number of periods,
// starting at uniformly random hours and lasting exponentially distributed
// durations with mean durationMinutes. The availability of a period is the
// fraction of the hour without an outage. The result only depends on the
// arguments.
func SimulateAvailability(scenarios, years, periods int, outagesPerYear, durationMinutes float64, seed int64) [][][]float64 {
	src := rand.NewSource(uint64(seed))
	rng := rand.New(src)
	o := make([][][]float64, scenarios)
	for s := range o {
		o[s] = make([][]float64, years)
		for y := range o[s] {
			a := make([]float64, periods)
			for t := range a {
				a[t] = 1
			}
			o[s][y] = a
			if outagesPerYear <= 0 || durationMinutes <= 0 {
				continue
			}
			count := distuv.Poisson{Lambda: outagesPerYear * float64(periods) / 8760, Src: src}
			duration := distuv.Exponential{Rate: 1 / durationMinutes, Src: src}
			n := int(count.Rand())
			for i := 0; i < n; i++ {
				start := float64(rng.Intn(periods)) * 60
				end := math.Min(start+duration.Rand(), float64(periods)*60)
				for t := int(start / 60); float64(t)*60 < end; t++ {
					overlap := math.Min(end, float64(t+1)*60) - math.Max(start, float64(t)*60)
					a[t] = math.Max(0, a[t]-overlap/60)
				}
			}
		}
	}
	return o
}
