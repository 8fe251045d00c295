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
	"strings"
	"time"

	"github.com/spatialmodel/microgrid/milp"
)

func enumString(names []string, i int, kind string) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, i)
	}
	return names[i]
}

func parseEnum(kind string, names []string, s string) (int, error) {
	for i, n := range names {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return i, nil
		}
	}
	return 0, configErr("invalid %s %q; valid options are %s", kind, s, strings.Join(names, ", "))
}

// Goal is the economic objective.
type Goal int

// Objectives.
const (
	// NPC minimises the scenario-weighted net present cost.
	NPC Goal = iota
	// VariableCost minimises the scenario-weighted non-actualised
	// variable cost, subject to an investment cost limit.
	VariableCost
)

var goalNames = []string{"npc", "variable_cost"}

func (g Goal) String() string { return enumString(goalNames, int(g), "Goal") }

// ParseGoal parses the name of a Goal.
func ParseGoal(s string) (Goal, error) {
	i, err := parseEnum("optimization goal", goalNames, s)
	return Goal(i), err
}

// MultiObjective selects the ε-constraint trade-off against CO₂.
type MultiObjective int

// Multi-objective modes.
const (
	SingleObjective MultiObjective = iota
	NPCvsCO2
	VariableCostvsCO2
)

var multiObjectiveNames = []string{"off", "npc_vs_co2", "varcost_vs_co2"}

func (m MultiObjective) String() string {
	return enumString(multiObjectiveNames, int(m), "MultiObjective")
}

// ParseMultiObjective parses the name of a MultiObjective mode.
func ParseMultiObjective(s string) (MultiObjective, error) {
	i, err := parseEnum("multi-objective mode", multiObjectiveNames, s)
	return MultiObjective(i), err
}

// Formulation selects continuous or integer sizing.
type Formulation int

// Formulations.
const (
	LP Formulation = iota
	MILP
)

var formulationNames = []string{"lp", "milp"}

func (f Formulation) String() string { return enumString(formulationNames, int(f), "Formulation") }

// ParseFormulation parses the name of a Formulation.
func ParseFormulation(s string) (Formulation, error) {
	i, err := parseEnum("formulation", formulationNames, s)
	return Formulation(i), err
}

// InvestmentType says whether existing assets are present.
type InvestmentType int

// Investment types.
const (
	Greenfield InvestmentType = iota
	Brownfield
)

var investmentNames = []string{"greenfield", "brownfield"}

func (t InvestmentType) String() string { return enumString(investmentNames, int(t), "InvestmentType") }

// ParseInvestmentType parses the name of an InvestmentType.
func ParseInvestmentType(s string) (InvestmentType, error) {
	i, err := parseEnum("investment type", investmentNames, s)
	return InvestmentType(i), err
}

// Components selects which dispatchable technologies are modelled
// alongside the renewable sources.
type Components int

// Component sets.
const (
	Full Components = iota
	BatteryOnly
	GeneratorOnly
)

var componentNames = []string{"full", "battery_only", "generator_only"}

func (c Components) String() string { return enumString(componentNames, int(c), "Components") }

// ParseComponents parses the name of a Components set.
func ParseComponents(s string) (Components, error) {
	i, err := parseEnum("model components", componentNames, s)
	return Components(i), err
}

// HasBattery reports whether the battery bank is modelled.
func (c Components) HasBattery() bool { return c == Full || c == BatteryOnly }

// HasGenerators reports whether generators are modelled.
func (c Components) HasGenerators() bool { return c == Full || c == GeneratorOnly }

// GridConnectionType says whether energy can be sold to the grid.
type GridConnectionType int

// Grid connection types.
const (
	PurchaseOnly GridConnectionType = iota
	PurchaseSell
)

var gridTypeNames = []string{"purchase_only", "purchase_sell"}

func (g GridConnectionType) String() string {
	return enumString(gridTypeNames, int(g), "GridConnectionType")
}

// ParseGridConnectionType parses the name of a GridConnectionType.
func ParseGridConnectionType(s string) (GridConnectionType, error) {
	i, err := parseEnum("grid connection type", gridTypeNames, s)
	return GridConnectionType(i), err
}

// FuelCostMode selects how yearly fuel prices are obtained.
type FuelCostMode int

// Fuel cost modes.
const (
	// ConstantFuelCost uses Generator.FuelCost for every year.
	ConstantFuelCost FuelCostMode = iota
	// LinearFuelCost grows Generator.FuelCost by Generator.FuelCostRate
	// per year.
	LinearFuelCost
	// ImportedFuelCost reads Parameters.FuelCost.
	ImportedFuelCost
)

var fuelCostNames = []string{"constant", "linear_trend", "imported_series"}

func (f FuelCostMode) String() string { return enumString(fuelCostNames, int(f), "FuelCostMode") }

// ParseFuelCostMode parses the name of a FuelCostMode.
func ParseFuelCostMode(s string) (FuelCostMode, error) {
	i, err := parseEnum("fuel cost mode", fuelCostNames, s)
	return FuelCostMode(i), err
}

// SolverKind selects the optimisation backend.
type SolverKind int

// Solver backends.
const (
	SimplexSolver SolverKind = iota

	// HiGHSSolver uses the HiGHS library. It is only available in
	// binaries built with the highs tag.
	HiGHSSolver
)

var solverNames = []string{"simplex", "highs"}

func (s SolverKind) String() string { return enumString(solverNames, int(s), "SolverKind") }

// ParseSolverKind parses the name of a SolverKind.
func ParseSolverKind(s string) (SolverKind, error) {
	i, err := parseEnum("solver", solverNames, s)
	return SolverKind(i), err
}

// SolverConfig holds backend settings.
type SolverConfig struct {
	Kind      SolverKind
	MIPGap    float64
	TimeLimit time.Duration
	MaxNodes  int
	Tolerance float64

	// WarmStart passes the solution of the previous solve in a
	// multi-objective sweep to the next one as a starting point.
	WarmStart bool

	MIPFocus         int
	BarrierTolerance float64
}

// Config holds the structural switches of a model. A single value is
// passed to model construction; constraint families are attached
// according to it.
type Config struct {
	Goal           Goal
	MultiObjective MultiObjective
	Formulation    Formulation

	// PartialLoad enables generator unit commitment with a partial-load
	// fuel curve. It requires the MILP formulation.
	PartialLoad bool

	Investment     InvestmentType
	Components     Components
	Grid           bool
	GridConnection GridConnectionType
	FuelCost       FuelCostMode

	// WACC discounts with the weighted average cost of capital instead
	// of Parameters.DiscountRate.
	WACC bool

	// ParetoPoints is the number of ε-constraint points in a
	// multi-objective sweep, and ParetoSolution the zero-based index of
	// the point returned as the solution.
	ParetoPoints   int
	ParetoSolution int

	// Workers bounds the number of concurrent solves in a
	// multi-objective sweep. Zero means one per CPU.
	Workers int

	// DiagnoseInfeasibility runs a deletion filter over constraint
	// families when a model is infeasible.
	DiagnoseInfeasibility bool

	Solver SolverConfig
}

// DefaultConfig returns a greenfield, off-grid LP configuration that
// minimises NPC.
func DefaultConfig() Config {
	return Config{
		ParetoPoints: 3,
		Solver: SolverConfig{
			MIPGap:    1e-4,
			Tolerance: 1e-9,
		},
	}
}

// Check returns an error if the switches in c are inconsistent.
func (c *Config) Check() error {
	if c.PartialLoad && c.Formulation != MILP {
		return configErr("generator partial load requires the MILP formulation")
	}
	if c.PartialLoad && !c.Components.HasGenerators() {
		return configErr("generator partial load requires generators, but model components are %s", c.Components)
	}
	switch c.MultiObjective {
	case SingleObjective:
	case NPCvsCO2:
		if c.Goal != NPC {
			return configErr("multi-objective mode %s requires optimization goal npc, not %s", c.MultiObjective, c.Goal)
		}
	case VariableCostvsCO2:
		if c.Goal != VariableCost {
			return configErr("multi-objective mode %s requires optimization goal variable_cost, not %s", c.MultiObjective, c.Goal)
		}
	default:
		return configErr("invalid multi-objective mode %d", int(c.MultiObjective))
	}
	if c.MultiObjective != SingleObjective {
		if c.ParetoPoints < 2 {
			return configErr("a multi-objective sweep needs at least 2 points, got %d", c.ParetoPoints)
		}
		if c.ParetoSolution < 0 || c.ParetoSolution >= c.ParetoPoints {
			return configErr("selected Pareto point %d is outside of [0, %d)", c.ParetoSolution, c.ParetoPoints)
		}
	}
	if c.Solver.Kind == HiGHSSolver && !milp.HiGHSAvailable {
		return configErr("solver %s: %v", c.Solver.Kind, milp.ErrNoHiGHS)
	}
	if c.Solver.MIPGap < 0 {
		return rangeErr("MIP gap must not be negative, got %g", c.Solver.MIPGap)
	}
	if c.Solver.TimeLimit < 0 {
		return rangeErr("time limit must not be negative, got %v", c.Solver.TimeLimit)
	}
	if c.Workers < 0 {
		return rangeErr("worker count must not be negative, got %d", c.Workers)
	}
	return nil
}
