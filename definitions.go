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

import "github.com/spatialmodel/microgrid/milp"

// DefineInvestmentCost defines inv_cost.
func DefineInvestmentCost(m *Model) error {
	if err := m.require(defInvestment); err != nil {
		return err
	}
	m.define(defInvestment, "investment_cost", m.Vars.InvestmentCost, InvestmentCost(m))
	return nil
}

// DefineFixedOM defines the actualised and non-actualised fixed O&M costs.
func DefineFixedOM(m *Model) error {
	if err := m.require(defFixedOM, defInvestment); err != nil {
		return err
	}
	m.define(defFixedOM, "fixed_om", m.Vars.OMAct, FixedOM(m, true))
	m.define(defFixedOM, "fixed_om", m.Vars.OMNonAct, FixedOM(m, false))
	return nil
}

// DefineVariableOM defines the actualised battery replacement, fuel, grid
// and lost load costs of each scenario.
func DefineVariableOM(m *Model) error {
	if err := m.require(defVariableOM, defInvestment, defFixedOM); err != nil {
		return err
	}
	v := m.Vars
	for s := 0; s < m.Index.Scenarios; s++ {
		m.define(defVariableOM, "variable_om", v.ScenarioReplacement.At(s), ReplacementCost(m, s, true))
		m.define(defVariableOM, "variable_om", v.ScenarioFuel.At(s), FuelCost(m, s, true))
		m.define(defVariableOM, "variable_om", v.ScenarioGrid.At(s), GridCost(m, s, true))
		m.define(defVariableOM, "variable_om", v.ScenarioLostLoad.At(s), LostLoadCost(m, s, true))
	}
	return nil
}

// DefineScenarioVariableCost defines the total variable cost of each
// scenario, actualised and not, and their scenario-weighted
// non-actualised sum.
func DefineScenarioVariableCost(m *Model) error {
	if err := m.require(defScenarioCost, defFixedOM, defVariableOM); err != nil {
		return err
	}
	v := m.Vars
	var weighted milp.LinExpr
	for s := 0; s < m.Index.Scenarios; s++ {
		var act milp.LinExpr
		act.Add(v.OMAct, 1).
			Add(v.ScenarioReplacement.At(s), 1).
			Add(v.ScenarioFuel.At(s), 1).
			Add(v.ScenarioGrid.At(s), 1).
			Add(v.ScenarioLostLoad.At(s), 1)
		m.define(defScenarioCost, "variable_cost", v.ScenarioVarCostAct.At(s), act)

		nonAct := milp.Sum(
			milp.Expr(v.OMNonAct, 1),
			ReplacementCost(m, s, false),
			FuelCost(m, s, false),
			GridCost(m, s, false),
			LostLoadCost(m, s, false),
		)
		m.define(defScenarioCost, "variable_cost", v.ScenarioVarCostNonAct.At(s), nonAct)
		weighted.Add(v.ScenarioVarCostNonAct.At(s), m.Params.ScenarioWeights[s])
	}
	m.define(defScenarioCost, "variable_cost", v.VariableCost, weighted)
	return nil
}

// DefineSalvage defines the salvage value.
func DefineSalvage(m *Model) error {
	if err := m.require(defSalvage, defInvestment); err != nil {
		return err
	}
	m.define(defSalvage, "salvage", m.Vars.Salvage, Salvage(m))
	return nil
}

// DefineScenarioNPC defines the net present cost of each scenario as
// investment plus actualised variable cost minus salvage.
func DefineScenarioNPC(m *Model) error {
	if err := m.require(defScenarioNPC, defInvestment, defScenarioCost, defSalvage); err != nil {
		return err
	}
	v := m.Vars
	for s := 0; s < m.Index.Scenarios; s++ {
		var e milp.LinExpr
		e.Add(v.InvestmentCost, 1).Add(v.ScenarioVarCostAct.At(s), 1).Add(v.Salvage, -1)
		m.define(defScenarioNPC, "scenario_npc", v.ScenarioNPC.At(s), e)
	}
	return nil
}

// DefineNPC defines the scenario-weighted net present cost.
func DefineNPC(m *Model) error {
	if err := m.require(defNPC, defScenarioNPC); err != nil {
		return err
	}
	v := m.Vars
	var e milp.LinExpr
	for s, w := range m.Params.ScenarioWeights {
		e.Add(v.ScenarioNPC.At(s), w)
	}
	m.define(defNPC, "npc", v.NPC, e)
	return nil
}

// DefineEmissions defines the life-cycle emissions, the emissions of each
// scenario and their weighted sum.
func DefineEmissions(m *Model) error {
	if err := m.require(defEmissions); err != nil {
		return err
	}
	v := m.Vars
	m.define(defEmissions, "emissions", v.LCAEmissions, LCAEmissions(m))
	var total milp.LinExpr
	for s, w := range m.Params.ScenarioWeights {
		e := OperationEmissions(m, s)
		e.Add(v.LCAEmissions, 1)
		m.define(defEmissions, "emissions", v.ScenarioCO2.At(s), e)
		total.Add(v.ScenarioCO2.At(s), w)
	}
	m.define(defEmissions, "emissions", v.CO2, total)
	return nil
}
