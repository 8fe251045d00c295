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
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/microgrid/internal/hash"
	"github.com/spatialmodel/microgrid/milp"
)

// Driver builds and solves models.
type Driver struct {
	// Solver is the optimisation backend. If nil, the backend selected by
	// the configuration is used.
	Solver milp.Solver

	Log logrus.FieldLogger

	// Metrics, if not nil, is updated after every solve.
	Metrics *Metrics
}

func (d *Driver) log() logrus.FieldLogger {
	if d.Log == nil {
		return logrus.StandardLogger()
	}
	return d.Log
}

func (d *Driver) solver(cfg *Config, log logrus.FieldLogger) milp.Solver {
	if d.Solver != nil {
		return d.Solver
	}
	if cfg.Solver.Kind == HiGHSSolver {
		return &milp.HiGHS{Log: log}
	}
	return &milp.Simplex{Log: log}
}

// verifyTolerance is the relative tolerance of the solution check that
// follows every successful solve.
const verifyTolerance = 1e-6

func solverOptions(cfg *Config, warm []float64) milp.Options {
	o := milp.DefaultOptions()
	if cfg.Solver.Tolerance > 0 {
		o.Tolerance = cfg.Solver.Tolerance
	}
	o.MIPGap = cfg.Solver.MIPGap
	o.TimeLimit = cfg.Solver.TimeLimit
	o.MaxNodes = cfg.Solver.MaxNodes
	o.MIPFocus = cfg.Solver.MIPFocus
	o.BarrierTolerance = cfg.Solver.BarrierTolerance
	if cfg.Solver.WarmStart {
		o.WarmStart = warm
	}
	return o
}

// Solve validates p against cfg, builds the model, solves it and returns
// the results. With a multi-objective configuration it performs the
// ε-constraint sweep and returns the selected point.
//
// When the solver does not find a solution the returned error is a
// *SolverError and the returned Results carry the status and diagnostics.
func (d *Driver) Solve(ctx context.Context, cfg *Config, p *Parameters) (*Results, error) {
	if err := p.Validate(cfg); err != nil {
		return nil, err
	}
	runID := uuid.New().String()
	log := d.log().WithFields(logrus.Fields{"run": runID, "mode": cfg.MultiObjective.String()})
	start := time.Now()

	var r *Results
	var err error
	if cfg.MultiObjective == SingleObjective {
		r, err = d.solveSingle(ctx, cfg, p, economic(cfg), nil, nil, log)
	} else {
		r, err = d.solvePareto(ctx, cfg, p, log)
	}
	if r != nil {
		r.RunID = runID
		r.InputHash = hash.Hash(cfg, p)
	}
	if err != nil {
		log.WithError(err).Error("microgrid: solve failed")
		return r, err
	}
	log.WithFields(logrus.Fields{
		"status":    r.Status,
		"objective": r.Objective,
		"npc":       r.NPC,
		"co2":       r.CO2,
		"elapsed":   time.Since(start),
	}).Info("microgrid: solve finished")
	return r, nil
}

// solveSingle builds a model with the default build functions followed by
// extra, minimises o and extracts the results.
func (d *Driver) solveSingle(ctx context.Context, cfg *Config, p *Parameters, o Objective,
	extra []ModelManipulator, warm []float64, log logrus.FieldLogger) (*Results, error) {

	m, err := NewModel(cfg, p, append(DefaultBuildFuncs(), extra...)...)
	if err != nil {
		return nil, err
	}
	m.Log = log
	if err := m.Build(); err != nil {
		return nil, err
	}
	if err := SetObjective(m, o); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"objective": o,
		"vars":      m.Problem.NumVars(),
		"rows":      m.Problem.NumConstraints(),
	}).Debug("microgrid: solving")

	sol, err := d.solver(cfg, log).Solve(ctx, m.Problem, solverOptions(cfg, warm))
	d.Metrics.observe(o, m.Problem, sol)
	if err != nil || sol == nil || !sol.Status.HasSolution() {
		serr := statusError(sol, err)
		r := &Results{Diagnostics: &Diagnostics{Message: serr.Error()}}
		if sol != nil {
			r.Status = sol.Status
			r.Diagnostics.Status = sol.Status
			r.Diagnostics.Conflicts = sol.Conflicts
			if sol.Status == milp.Infeasible && cfg.DiagnoseInfeasibility {
				fams, ferr := d.deletionFilter(ctx, cfg, m, log)
				if ferr != nil {
					log.WithError(ferr).Warn("microgrid: infeasibility diagnosis failed")
				}
				r.Diagnostics.Families = fams
				if se, ok := serr.(*SolverError); ok && len(fams) > 0 {
					se.Families = fams
				}
			}
		}
		return r, serr
	}
	if math.IsNaN(sol.Objective) || math.IsInf(sol.Objective, 0) {
		serr := &SolverError{Kind: ErrNumerical, Status: milp.Numerical,
			Err: fmt.Errorf("objective %g with status %s", sol.Objective, sol.Status)}
		return &Results{Status: milp.Numerical, Diagnostics: &Diagnostics{Status: milp.Numerical, Message: serr.Error()}}, serr
	}
	if sol.Status == milp.Feasible {
		log.WithField("gap", sol.Gap()).Warn("microgrid: solver limit reached; returning the best solution found")
	}
	r := Extract(m, sol)
	for _, v := range r.Verify(cfg, p, verifyTolerance) {
		log.WithField("violation", v).Warn("microgrid: solution check failed")
	}
	return r, nil
}
