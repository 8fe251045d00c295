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
	"math"

	"github.com/spatialmodel/microgrid/milp"
)

// Variables holds the decision variables of a model. Blocks that are not
// active for the model configuration are empty. Index order is given in
// brackets: st is the investment step, s the scenario, y the year, t the
// period, r the renewable source and g the generator type.
type Variables struct {
	RESUnits        milp.Block // [st][r]
	BatteryCapacity milp.Block // [st], LP only [Wh]
	BatteryUnits    milp.Block // [st], MILP only
	GenCapacity     milp.Block // [st][g], LP only [W]
	GenUnits        milp.Block // [st][g], MILP only

	RESEnergy  milp.Block // [s][y][r][t]
	BatteryIn  milp.Block // [s][y][t]
	BatteryOut milp.Block // [s][y][t]
	SOC        milp.Block // [s][y][t]

	// GenEnergy is the total generator output. With partial load it is
	// split into fully loaded units (GenFull), a partially loaded unit
	// (GenPartial) and the output of that unit (GenEnergyPartial).
	GenEnergy        milp.Block // [s][y][g][t]
	GenFull          milp.Block // [s][y][g][t]
	GenPartial       milp.Block // [s][y][g][t]
	GenEnergyPartial milp.Block // [s][y][g][t]

	GridImport milp.Block // [s][y][t]
	GridExport milp.Block // [s][y][t]

	SingleFlowBattery milp.Block // [s][y][t]
	SingleFlowGrid    milp.Block // [s][y][t]

	LostLoad    milp.Block // [s][y][t]
	Curtailment milp.Block // [s][y][t]

	// Cost and emission aggregators. These are free variables defined by
	// equality constraints.
	InvestmentCost milp.Var
	OMAct          milp.Var
	OMNonAct       milp.Var
	Salvage        milp.Var
	NPC            milp.Var
	VariableCost   milp.Var
	LCAEmissions   milp.Var
	CO2            milp.Var

	ScenarioReplacement   milp.Block // [s], actualised
	ScenarioFuel          milp.Block // [s], actualised
	ScenarioGrid          milp.Block // [s], actualised
	ScenarioLostLoad      milp.Block // [s], actualised
	ScenarioVarCostAct    milp.Block // [s]
	ScenarioVarCostNonAct milp.Block // [s]
	ScenarioNPC           milp.Block // [s]
	ScenarioCO2           milp.Block // [s]
}

// AddVariables creates the decision variables that cfg makes active.
func AddVariables(m *Model) error {
	if m.Vars != nil {
		return configErr("variables have already been added to the model")
	}
	cfg, ix, p := m.Config, m.Index, m.Problem
	v := new(Variables)
	inf := math.Inf(1)
	S, Y, T, ST := ix.Scenarios, ix.Years, ix.Periods, ix.Steps
	milpOn := cfg.Formulation == MILP
	unitType := milp.Continuous
	if milpOn {
		unitType = milp.Integer
	}

	v.RESUnits = p.NewBlock("res_units", 0, inf, unitType, ST, ix.Renewables)
	v.RESEnergy = p.NewBlock("res_energy", 0, inf, milp.Continuous, S, Y, ix.Renewables, T)

	if cfg.Components.HasBattery() {
		if milpOn {
			v.BatteryUnits = p.NewBlock("battery_units", 0, inf, milp.Integer, ST)
		} else {
			v.BatteryCapacity = p.NewBlock("battery_capacity", 0, inf, milp.Continuous, ST)
		}
		v.BatteryIn = p.NewBlock("battery_in", 0, inf, milp.Continuous, S, Y, T)
		v.BatteryOut = p.NewBlock("battery_out", 0, inf, milp.Continuous, S, Y, T)
		v.SOC = p.NewBlock("soc", 0, inf, milp.Continuous, S, Y, T)
		if milpOn {
			v.SingleFlowBattery = p.NewBlock("single_flow_bess", 0, 1, milp.Binary, S, Y, T)
		}
	}

	if cfg.Components.HasGenerators() {
		G := ix.Generators
		if milpOn {
			v.GenUnits = p.NewBlock("gen_units", 0, inf, milp.Integer, ST, G)
		} else {
			v.GenCapacity = p.NewBlock("gen_capacity", 0, inf, milp.Continuous, ST, G)
		}
		v.GenEnergy = p.NewBlock("gen_energy", 0, inf, milp.Continuous, S, Y, G, T)
		if cfg.PartialLoad {
			v.GenFull = p.NewBlock("gen_full", 0, inf, milp.Integer, S, Y, G, T)
			v.GenPartial = p.NewBlock("gen_partial", 0, 1, milp.Binary, S, Y, G, T)
			v.GenEnergyPartial = p.NewBlock("gen_energy_partial", 0, inf, milp.Continuous, S, Y, G, T)
		}
	}

	if cfg.Grid {
		v.GridImport = p.NewBlock("energy_from_grid", 0, inf, milp.Continuous, S, Y, T)
		v.GridExport = p.NewBlock("energy_to_grid", 0, inf, milp.Continuous, S, Y, T)
		if milpOn && cfg.GridConnection == PurchaseSell {
			v.SingleFlowGrid = p.NewBlock("single_flow_grid", 0, 1, milp.Binary, S, Y, T)
		}
	}

	v.LostLoad = p.NewBlock("lost_load", 0, inf, milp.Continuous, S, Y, T)
	v.Curtailment = p.NewBlock("curtailment", 0, inf, milp.Continuous, S, Y, T)

	free := func(name string) milp.Var { return p.NewVar(name, -inf, inf, milp.Continuous) }
	freeBlock := func(name string) milp.Block { return p.NewBlock(name, -inf, inf, milp.Continuous, S) }
	v.InvestmentCost = free("inv_cost")
	v.OMAct = free("om_act")
	v.OMNonAct = free("om_nonact")
	v.Salvage = free("salvage")
	v.NPC = free("npc")
	v.VariableCost = free("variable_cost")
	v.LCAEmissions = free("lca_co2")
	v.CO2 = free("co2")
	v.ScenarioReplacement = freeBlock("scenario_replacement_cost_act")
	v.ScenarioFuel = freeBlock("scenario_fuel_cost_act")
	v.ScenarioGrid = freeBlock("scenario_grid_cost_act")
	v.ScenarioLostLoad = freeBlock("scenario_lost_load_cost_act")
	v.ScenarioVarCostAct = freeBlock("total_var_cost_act")
	v.ScenarioVarCostNonAct = freeBlock("total_var_cost_nonact")
	v.ScenarioNPC = freeBlock("scenario_npc")
	v.ScenarioCO2 = freeBlock("scenario_co2")

	m.Vars = v
	return nil
}
