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

// AddDispatchConstraints adds the energy balance, the renewable production
// equalities and the lost load cap.
func AddDispatchConstraints(m *Model) error {
	if err := m.require("dispatch constraints"); err != nil {
		return err
	}
	ix, v, p, cfg := m.Index, m.Vars, m.Params, m.Config
	for s := 0; s < ix.Scenarios; s++ {
		for y := 0; y < ix.Years; y++ {
			st := ix.StepOf(y)
			for t := 0; t < ix.Periods; t++ {
				var e milp.LinExpr
				for r := 0; r < ix.Renewables; r++ {
					e.Add(v.RESEnergy.At(s, y, r, t), 1)
				}
				if cfg.Components.HasGenerators() {
					for g := 0; g < ix.Generators; g++ {
						e.Add(v.GenEnergy.At(s, y, g, t), 1)
					}
				}
				if cfg.Grid {
					a := p.GridAvailability[s][y][t]
					e.Add(v.GridImport.At(s, y, t), a).Add(v.GridExport.At(s, y, t), -a)
				}
				if cfg.Components.HasBattery() {
					e.Add(v.BatteryOut.At(s, y, t), 1).Add(v.BatteryIn.At(s, y, t), -1)
				}
				e.Add(v.LostLoad.At(s, y, t), 1).Add(v.Curtailment.At(s, y, t), -1)
				m.Problem.AddConstraint("energy_balance", e, milp.Equal, p.Demand[s][y][t])
			}

			for r := 0; r < ix.Renewables; r++ {
				res := &p.Renewables[r]
				for t := 0; t < ix.Periods; t++ {
					var e milp.LinExpr
					e.Add(v.RESEnergy.At(s, y, r, t), 1).
						Add(v.RESUnits.At(st, r), -p.Production[s][r][t]*res.InverterEfficiency)
					m.Problem.AddConstraint("renewable_energy", e, milp.Equal, 0)
				}
			}

			var lost milp.LinExpr
			var demand float64
			for t := 0; t < ix.Periods; t++ {
				lost.Add(v.LostLoad.At(s, y, t), 1)
				demand += p.Demand[s][y][t]
			}
			m.Problem.AddConstraint("lost_load_cap", lost, milp.LessEq, p.LostLoadFraction*demand)
		}
	}
	return nil
}

// AddBatteryConstraints adds the state of charge recursion, its bounds,
// the flow limits and, in the MILP formulation, the single flow rule.
func AddBatteryConstraints(m *Model) error {
	if !m.Config.Components.HasBattery() {
		return nil
	}
	if err := m.require("battery constraints"); err != nil {
		return err
	}
	ix, v, b := m.Index, m.Vars, m.Params.Battery
	bigM := m.Params.LargeM
	prob := m.Problem
	for s := 0; s < ix.Scenarios; s++ {
		for y := 0; y < ix.Years; y++ {
			capacity := BatteryCapacity(m, ix.StepOf(y))
			for t := 0; t < ix.Periods; t++ {
				soc := v.SOC.At(s, y, t)
				in, out := v.BatteryIn.At(s, y, t), v.BatteryOut.At(s, y, t)

				// soc = previous + in·η_ch − out/η_dis
				var e milp.LinExpr
				e.Add(soc, 1).Add(in, -b.ChargeEfficiency).Add(out, 1/b.DischargeEfficiency)
				switch {
				case t > 0:
					e.Add(v.SOC.At(s, y, t-1), -1)
				case y > 0:
					e.Add(v.SOC.At(s, y-1, ix.Periods-1), -1)
				default:
					e.AddExpr(BatteryCapacity(m, 0), -b.InitialSOC)
				}
				prob.AddConstraint("battery_soc", e, milp.Equal, 0)

				upper := milp.Expr(soc, 1)
				upper.AddExpr(capacity, -1)
				prob.AddConstraint("battery_soc_max", upper, milp.LessEq, 0)

				lower := milp.Expr(soc, 1)
				lower.AddExpr(capacity, -(1 - b.DepthOfDischarge))
				prob.AddConstraint("battery_soc_min", lower, milp.GreaterEq, 0)

				charge := milp.Expr(in, 1)
				charge.AddExpr(capacity, -1/b.MaxChargeTime)
				prob.AddConstraint("battery_charge_max", charge, milp.LessEq, 0)

				discharge := milp.Expr(out, 1)
				discharge.AddExpr(capacity, -1/b.MaxDischargeTime)
				prob.AddConstraint("battery_discharge_max", discharge, milp.LessEq, 0)

				if !v.SingleFlowBattery.Empty() {
					sf := v.SingleFlowBattery.At(s, y, t)
					var ci, co milp.LinExpr
					ci.Add(in, 1).Add(sf, -bigM)
					prob.AddConstraint("single_flow_battery", ci, milp.LessEq, 0)
					co.Add(out, 1).Add(sf, bigM)
					prob.AddConstraint("single_flow_battery", co, milp.LessEq, bigM)
				}
			}
		}
	}
	return nil
}

// AddGeneratorConstraints adds the generator capacity limits or, with
// partial load, the unit commitment constraints.
func AddGeneratorConstraints(m *Model) error {
	if !m.Config.Components.HasGenerators() {
		return nil
	}
	if err := m.require("generator constraints"); err != nil {
		return err
	}
	ix, v, p, prob := m.Index, m.Vars, m.Params, m.Problem
	for s := 0; s < ix.Scenarios; s++ {
		for y := 0; y < ix.Years; y++ {
			st := ix.StepOf(y)
			for g := 0; g < ix.Generators; g++ {
				gen := &p.Generators[g]
				for t := 0; t < ix.Periods; t++ {
					energy := v.GenEnergy.At(s, y, g, t)
					if !m.Config.PartialLoad {
						e := milp.Expr(energy, 1)
						e.AddExpr(GenCapacity(m, st, g), -1)
						prob.AddConstraint("generator_capacity", e, milp.LessEq, 0)
						prob.AddConstraint("generator_demand", milp.Expr(energy, 1), milp.LessEq, p.Demand[s][y][t])
						continue
					}
					full, part := v.GenFull.At(s, y, g, t), v.GenPartial.At(s, y, g, t)
					partEnergy := v.GenEnergyPartial.At(s, y, g, t)

					var units milp.LinExpr
					units.Add(v.GenUnits.At(st, g), 1).Add(full, -1).Add(part, -1)
					prob.AddConstraint("generator_units", units, milp.Equal, 0)

					var lo, hi milp.LinExpr
					lo.Add(partEnergy, 1).Add(part, -gen.MinOutput*gen.UnitCapacity)
					prob.AddConstraint("generator_partial_min", lo, milp.GreaterEq, 0)
					hi.Add(partEnergy, 1).Add(part, -gen.UnitCapacity)
					prob.AddConstraint("generator_partial_max", hi, milp.LessEq, 0)

					var total milp.LinExpr
					total.Add(energy, 1).Add(full, -gen.UnitCapacity).Add(partEnergy, -1)
					prob.AddConstraint("generator_energy", total, milp.Equal, 0)
				}
			}
		}
	}
	return nil
}

// AddGridConstraints adds the grid connection year, power limits and
// purchase-only rules.
func AddGridConstraints(m *Model) error {
	if !m.Config.Grid {
		return nil
	}
	if err := m.require("grid constraints"); err != nil {
		return err
	}
	ix, v, p, prob := m.Index, m.Vars, m.Params, m.Problem
	g := p.Grid
	for s := 0; s < ix.Scenarios; s++ {
		for y := 0; y < ix.Years; y++ {
			for t := 0; t < ix.Periods; t++ {
				imp, exp := v.GridImport.At(s, y, t), v.GridExport.At(s, y, t)
				if y < g.ConnectionYear {
					prob.AddConstraint("grid_connection", milp.Expr(imp, 1), milp.Equal, 0)
					prob.AddConstraint("grid_connection", milp.Expr(exp, 1), milp.Equal, 0)
					continue
				}
				limit := g.MaxPower * p.GridAvailability[s][y][t]
				prob.AddConstraint("grid_max_power", milp.Expr(imp, 1), milp.LessEq, limit)
				if m.Config.GridConnection == PurchaseOnly {
					prob.AddConstraint("grid_purchase_only", milp.Expr(exp, 1), milp.Equal, 0)
					continue
				}
				prob.AddConstraint("grid_max_power", milp.Expr(exp, 1), milp.LessEq, limit)
				if !v.SingleFlowGrid.Empty() {
					sf := v.SingleFlowGrid.At(s, y, t)
					var ci, co milp.LinExpr
					ci.Add(imp, 1).Add(sf, -p.LargeM)
					prob.AddConstraint("single_flow_grid", ci, milp.LessEq, 0)
					co.Add(exp, 1).Add(sf, p.LargeM)
					prob.AddConstraint("single_flow_grid", co, milp.LessEq, p.LargeM)
				}
			}
		}
	}
	return nil
}

// AddCapacityConstraints adds monotonic capacity expansion, the existing
// capacity floor of brownfield models, battery independence and the land
// use limit.
func AddCapacityConstraints(m *Model) error {
	if err := m.require("capacity constraints"); err != nil {
		return err
	}
	ix, p, prob := m.Index, m.Params, m.Problem
	for _, a := range assets(m) {
		for st := 1; st < ix.Steps; st++ {
			prob.AddConstraint("capacity_expansion", a.added(st), milp.GreaterEq, 0)
		}
		if a.existing > 0 {
			prob.AddConstraint("brownfield_capacity", a.capacity(0), milp.GreaterEq, a.existing)
		}
	}
	if d := p.BatteryIndependenceDays; d > 0 {
		b := p.Battery
		need := d * p.AverageDailyDemand() / (b.DepthOfDischarge * b.DischargeEfficiency)
		for st := 0; st < ix.Steps; st++ {
			prob.AddConstraint("battery_independence", BatteryCapacity(m, st), milp.GreaterEq, need)
		}
	}
	if p.LandAvailable > 0 && ix.Renewables > 0 {
		for st := 0; st < ix.Steps; st++ {
			var e milp.LinExpr
			for r := range p.Renewables {
				e.AddExpr(RESCapacity(m, st, r), p.Renewables[r].SpecificArea)
			}
			prob.AddConstraint("land_use", e, milp.LessEq, p.LandAvailable)
		}
	}
	return nil
}

// AddPolicyConstraints adds the renewable penetration target of each
// step and, when minimising variable cost, the investment cost limit.
func AddPolicyConstraints(m *Model) error {
	if err := m.require("policy constraints", defInvestment); err != nil {
		return err
	}
	ix, v, p, cfg := m.Index, m.Vars, m.Params, m.Config
	if rp := p.RenewablePenetration; rp > 0 {
		for st := 0; st < ix.Steps; st++ {
			// Σ res ≥ rp·(Σ res + Σ gen + grid import), weighted by scenario.
			var e milp.LinExpr
			for _, y := range ix.StepYears(st) {
				for s, w := range p.ScenarioWeights {
					for t := 0; t < ix.Periods; t++ {
						for r := 0; r < ix.Renewables; r++ {
							e.Add(v.RESEnergy.At(s, y, r, t), w*(1-rp))
						}
						if cfg.Components.HasGenerators() {
							for g := 0; g < ix.Generators; g++ {
								e.Add(v.GenEnergy.At(s, y, g, t), -w*rp)
							}
						}
						if cfg.Grid {
							e.Add(v.GridImport.At(s, y, t), -w*rp*p.GridAvailability[s][y][t])
						}
					}
				}
			}
			m.Problem.AddConstraint("renewable_penetration", e, milp.GreaterEq, 0)
		}
	}
	if cfg.Goal == VariableCost {
		m.Problem.AddConstraint("investment_limit", milp.Expr(v.InvestmentCost, 1), milp.LessEq, p.InvestmentCostLimit)
	}
	return nil
}
