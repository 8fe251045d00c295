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

import (
	"context"
	"errors"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/microgrid/milp"
	"golang.org/x/sync/errgroup"
)

// ParetoPoint is one point of an ε-constraint sweep.
type ParetoPoint struct {
	// Epsilon is the emission bound of the point [kg].
	Epsilon float64

	// Economic is the minimised economic objective [USD] and CO2 the
	// resulting weighted emissions [kg]. Both are NaN when Status has no
	// solution.
	Economic float64
	CO2      float64

	Status milp.Status
}

// epsilons returns n emission bounds evenly spaced from hi down to lo.
func epsilons(hi, lo float64, n int) []float64 {
	e := make([]float64, n)
	for i := range e {
		e[i] = hi - float64(i)*(hi-lo)/float64(n-1)
	}
	e[n-1] = lo
	return e
}

// solvePareto traces the trade-off between the economic objective and the
// emissions. The economic optimum gives the upper emission bound and the
// emission optimum the lower one; the interior points are solved
// concurrently, each on its own model.
func (d *Driver) solvePareto(ctx context.Context, cfg *Config, p *Parameters, log logrus.FieldLogger) (*Results, error) {
	econ := economic(cfg)
	a, err := d.solveSingle(ctx, cfg, p, econ, nil, nil, log.WithField("pareto", "economic"))
	if err != nil {
		return a, err
	}
	b, err := d.solveSingle(ctx, cfg, p, MinimizeCO2, nil, nil, log.WithField("pareto", "co2"))
	if err != nil {
		return b, err
	}
	n := cfg.ParetoPoints
	eps := epsilons(a.CO2, b.CO2, n)
	log.WithFields(logrus.Fields{"co2_max": a.CO2, "co2_min": b.CO2, "points": n}).
		Info("microgrid: emission range")

	results := make([]*Results, n)
	errs := make([]error, n)
	results[0] = a

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 1; i < n; i++ {
		i := i
		g.Go(func() error {
			plog := log.WithFields(logrus.Fields{"pareto": i, "epsilon": eps[i]})
			r, err := d.solveSingle(gctx, cfg, p, econ, []ModelManipulator{EpsilonConstraint(eps[i])}, b.x, plog)
			var serr *SolverError
			if err != nil && !errors.As(err, &serr) {
				return err
			}
			if err != nil {
				plog.WithError(err).Warn("microgrid: pareto point failed")
			}
			results[i], errs[i] = r, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	points := make([]ParetoPoint, n)
	for i, r := range results {
		pt := ParetoPoint{Epsilon: eps[i], Status: r.Status}
		if errs[i] != nil {
			pt.Economic, pt.CO2 = math.NaN(), math.NaN()
		} else {
			pt.Economic, pt.CO2 = r.Objective, r.CO2
		}
		points[i] = pt
	}
	sel := results[cfg.ParetoSolution]
	sel.Pareto = points
	return sel, errs[cfg.ParetoSolution]
}
