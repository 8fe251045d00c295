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
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spatialmodel/microgrid/milp"
)

// Metrics bundles the Prometheus collectors updated by a Driver.
type Metrics struct {
	Solves        *prometheus.CounterVec
	SolveDuration prometheus.Histogram
	Nodes         prometheus.Counter
	Variables     prometheus.Gauge
	Constraints   prometheus.Gauge
}

// NewMetrics registers solve metrics against reg, defaulting to the
// global Prometheus registry when reg is nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solves, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "microgrid_solves_total",
		Help: "Number of model solves, labeled by objective and solver status.",
	}, []string{"objective", "status"}), "microgrid_solves_total")
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "microgrid_solve_duration_seconds",
		Help:    "Wall-clock time of model solves in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}), "microgrid_solve_duration_seconds")
	if err != nil {
		return nil, err
	}
	nodes, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "microgrid_branch_and_bound_nodes_total",
		Help: "Number of branch-and-bound nodes explored.",
	}), "microgrid_branch_and_bound_nodes_total")
	if err != nil {
		return nil, err
	}
	vars, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "microgrid_model_variables",
		Help: "Number of variables in the most recently solved model.",
	}), "microgrid_model_variables")
	if err != nil {
		return nil, err
	}
	cons, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "microgrid_model_constraints",
		Help: "Number of constraints in the most recently solved model.",
	}), "microgrid_model_constraints")
	if err != nil {
		return nil, err
	}
	return &Metrics{
		Solves:        solves,
		SolveDuration: duration.(prometheus.Histogram),
		Nodes:         nodes.(prometheus.Counter),
		Variables:     vars.(prometheus.Gauge),
		Constraints:   cons.(prometheus.Gauge),
	}, nil
}

// observe records a solve. It is safe to call on a nil Metrics.
func (c *Metrics) observe(o Objective, p *milp.Problem, sol *milp.Solution) {
	if c == nil {
		return
	}
	status := milp.Numerical
	if sol != nil {
		status = sol.Status
		c.SolveDuration.Observe(sol.Elapsed.Seconds())
		c.Nodes.Add(float64(sol.Nodes))
	}
	c.Solves.WithLabelValues(o.String(), status.String()).Inc()
	c.Variables.Set(float64(p.NumVars()))
	c.Constraints.Set(float64(p.NumConstraints()))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("microgrid: collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

// register registers c, returning the existing collector if an equal one
// was registered before.
func register(reg prometheus.Registerer, c prometheus.Collector, name string) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector, nil
		}
		return nil, fmt.Errorf("microgrid: registering %s: %v", name, err)
	}
	return c, nil
}
