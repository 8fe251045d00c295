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

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/microgrid/milp"
)

// Diagnostics describes a failed solve.
type Diagnostics struct {
	Status milp.Status

	// Conflicts lists the constraint families that presolve or the
	// artificial variables of the relaxation found to be in conflict.
	Conflicts []string

	// Families is an irreducible set of constraint families found by the
	// deletion filter: the continuous relaxation restricted to these
	// families is infeasible, and dropping any one of them makes it
	// feasible. It is only computed when requested in the configuration.
	Families []string

	Message string
}

// deletionFilter finds an irreducible infeasible set of constraint
// families of the continuous relaxation of m. Definition families are
// always kept. If the relaxation is feasible, which happens when the
// infeasibility is caused by the integer variables, nil is returned.
func (d *Driver) deletionFilter(ctx context.Context, cfg *Config, m *Model, log logrus.FieldLogger) ([]string, error) {
	relaxed := m.Problem.Relaxed()
	relaxed.SetObjective(milp.LinExpr{})
	var candidates []string
	for _, f := range relaxed.Families() {
		if !m.defFamilies[f] {
			candidates = append(candidates, f)
		}
	}
	solver := d.solver(cfg, log)
	opt := solverOptions(cfg, nil)

	infeasible := func(dropped map[string]bool) (bool, error) {
		var drop []string
		for f := range dropped {
			drop = append(drop, f)
		}
		sol, err := solver.Solve(ctx, relaxed.Without(drop...), opt)
		if sol == nil {
			return false, err
		}
		switch sol.Status {
		case milp.Infeasible:
			return true, nil
		case milp.TimeLimit, milp.Numerical:
			return false, fmt.Errorf("microgrid: deletion filter: relaxation status %s: %v", sol.Status, err)
		}
		return false, nil
	}

	dropped := make(map[string]bool)
	if ok, err := infeasible(dropped); err != nil || !ok {
		return nil, err
	}
	var keep []string
	for _, f := range candidates {
		dropped[f] = true
		ok, err := infeasible(dropped)
		if err != nil {
			return keep, err
		}
		if !ok {
			// f is needed for the infeasibility.
			delete(dropped, f)
			keep = append(keep, f)
		}
	}
	log.WithField("families", keep).Info("microgrid: irreducible infeasible families")
	return keep, nil
}
