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

	"github.com/spatialmodel/microgrid/milp"
)

// Objective is the quantity minimised by a solve.
type Objective int

// Objectives.
const (
	MinimizeNPC Objective = iota
	MinimizeVariableCost
	MinimizeCO2
)

func (o Objective) String() string {
	return enumString([]string{"npc", "variable_cost", "co2"}, int(o), "Objective")
}

// economic returns the economic objective selected by cfg.
func economic(cfg *Config) Objective {
	if cfg.Goal == VariableCost {
		return MinimizeVariableCost
	}
	return MinimizeNPC
}

// objectiveVar returns the aggregator minimised for o.
func (m *Model) objectiveVar(o Objective) (milp.Var, error) {
	switch o {
	case MinimizeNPC:
		return m.Vars.NPC, m.require("NPC objective", defNPC)
	case MinimizeVariableCost:
		return m.Vars.VariableCost, m.require("variable cost objective", defScenarioCost)
	case MinimizeCO2:
		return m.Vars.CO2, m.require("emission objective", defEmissions)
	default:
		return 0, fmt.Errorf("microgrid: invalid objective %d", int(o))
	}
}

// SetObjective sets the objective of m.
func SetObjective(m *Model, o Objective) error {
	v, err := m.objectiveVar(o)
	if err != nil {
		return err
	}
	m.Problem.SetObjective(milp.Expr(v, 1))
	return nil
}

// EpsilonConstraint returns a manipulator that bounds the weighted
// emissions to eps. In the LP formulation the emissions are fixed to eps;
// in the MILP formulation they are bounded from above so that every point
// stays feasible despite the integer capacities.
func EpsilonConstraint(eps float64) ModelManipulator {
	return func(m *Model) error {
		if err := m.require("emission constraint", defEmissions); err != nil {
			return err
		}
		sense := milp.Equal
		if m.Config.Formulation == MILP {
			sense = milp.LessEq
		}
		m.Problem.AddConstraint("epsilon_constraint", milp.Expr(m.Vars.CO2, 1), sense, eps)
		return nil
	}
}
