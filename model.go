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

// Package microgrid sizes and dispatches the components of a microgrid
// (renewable sources, battery storage, fuel generators and an optional grid
// connection) with a mixed-integer linear program over a multi-year horizon
// of investment steps, scenarios and hourly periods.
//
// A Model is assembled by a sequence of ModelManipulators that add
// variables, define cost and emission aggregates and constrain them. The
// Driver builds, solves and verifies models, including ε-constraint
// sweeps of an economic objective against CO₂ emissions.
package microgrid

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/microgrid/milp"
)

// A ModelManipulator adds variables, definitions or constraints to a model.
type ModelManipulator func(m *Model) error

// Model is the optimisation model of one solve. It is owned by a single
// goroutine; concurrent solves need independent models.
type Model struct {
	Config  *Config
	Params  *Parameters
	Index   *Index
	Problem *milp.Problem
	Vars    *Variables

	// BuildFuncs are applied in order by Build.
	BuildFuncs []ModelManipulator

	Log logrus.FieldLogger

	defined map[string]bool

	// defFamilies holds the constraint families of the definitions.
	defFamilies map[string]bool
}

// Aggregator definitions, in the order in which they must be added.
const (
	defInvestment   = "investment cost"
	defFixedOM      = "fixed O&M cost"
	defVariableOM   = "variable O&M costs"
	defScenarioCost = "scenario variable cost"
	defSalvage      = "salvage value"
	defScenarioNPC  = "scenario NPC"
	defNPC          = "NPC"
	defEmissions    = "emissions"
)

// NewModel validates p against cfg and returns a model that will be built
// by funcs. If no funcs are given, DefaultBuildFuncs is used.
func NewModel(cfg *Config, p *Parameters, funcs ...ModelManipulator) (*Model, error) {
	if err := p.Validate(cfg); err != nil {
		return nil, err
	}
	ix, err := NewIndex(cfg, p)
	if err != nil {
		return nil, err
	}
	if len(funcs) == 0 {
		funcs = DefaultBuildFuncs()
	}
	return &Model{
		Config:      cfg,
		Params:      p,
		Index:       ix,
		Problem:     milp.NewProblem(),
		BuildFuncs:  funcs,
		Log:         logrus.StandardLogger(),
		defined:     make(map[string]bool),
		defFamilies: make(map[string]bool),
	}, nil
}

// DefaultBuildFuncs returns the manipulators that build a complete model,
// in the order required by the aggregator definitions.
func DefaultBuildFuncs() []ModelManipulator {
	return []ModelManipulator{
		AddVariables,
		DefineInvestmentCost,
		DefineFixedOM,
		DefineVariableOM,
		DefineScenarioVariableCost,
		DefineSalvage,
		DefineScenarioNPC,
		DefineNPC,
		DefineEmissions,
		AddDispatchConstraints,
		AddBatteryConstraints,
		AddGeneratorConstraints,
		AddGridConstraints,
		AddCapacityConstraints,
		AddPolicyConstraints,
	}
}

// Build applies the build functions of m.
func (m *Model) Build() error {
	for _, f := range m.BuildFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	m.Log.WithFields(logrus.Fields{
		"vars":        m.Problem.NumVars(),
		"constraints": m.Problem.NumConstraints(),
		"steps":       m.Index.Steps,
	}).Debug("microgrid: model built")
	return nil
}

// require returns an error unless the variables and all of the given
// definitions have been added.
func (m *Model) require(what string, defs ...string) error {
	if m.Vars == nil {
		return fmt.Errorf("microgrid: variables must be added before the %s", what)
	}
	for _, d := range defs {
		if !m.defined[d] {
			return fmt.Errorf("microgrid: the %s must be defined before the %s", d, what)
		}
	}
	return nil
}

// define adds the equality v = e in the given family and records def.
func (m *Model) define(def, family string, v milp.Var, e milp.LinExpr) {
	var row milp.LinExpr
	row.Add(v, 1).AddExpr(e, -1)
	m.Problem.AddConstraint(family, row, milp.Equal, 0)
	m.defined[def] = true
	m.defFamilies[family] = true
}

// Defined reports whether the named aggregator definition was added.
func (m *Model) Defined(def string) bool { return m.defined[def] }
