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
	"math"
)

// Violation is a result that does not satisfy a model relationship.
type Violation struct {
	// Family is the constraint family that is violated.
	Family string
	Detail string
	// Amount is the size of the violation in the family's units.
	Amount float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %g", v.Family, v.Detail, v.Amount)
}

type verifier struct {
	tol float64
	v   []Violation
}

// leq records a violation if a > b beyond the tolerance, scaled by the
// magnitude of the operands.
func (c *verifier) leq(family string, a, b float64, format string, args ...interface{}) {
	if d := a - b; d > c.tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b))) {
		c.v = append(c.v, Violation{Family: family, Detail: fmt.Sprintf(format, args...), Amount: d})
	}
}

func (c *verifier) eq(family string, a, b float64, format string, args ...interface{}) {
	c.leq(family, a, b, format, args...)
	c.leq(family, b, a, format, args...)
}

// Verify re-checks the extracted solution against cfg and p and returns
// every relationship that does not hold within the relative tolerance tol.
// It returns nil for failed solves.
func (r *Results) Verify(cfg *Config, p *Parameters, tol float64) []Violation {
	if r.x == nil {
		return nil
	}
	ix, err := NewIndex(cfg, p)
	if err != nil {
		return []Violation{{Family: "index", Detail: err.Error()}}
	}
	c := &verifier{tol: tol}
	d := r.Dispatch
	for s := 0; s < ix.Scenarios; s++ {
		for y := 0; y < ix.Years; y++ {
			st := ix.StepOf(y)
			capacity := r.Capacity[st]
			var lost, demand float64
			for t := 0; t < ix.Periods; t++ {
				var supply float64
				if d.RES != nil {
					for i := range d.RES[s][y] {
						supply += d.RES[s][y][i][t]
					}
				}
				if d.Generators != nil {
					for g := range d.Generators[s][y] {
						supply += d.Generators[s][y][g][t]
					}
				}
				if d.GridImport != nil {
					a := p.GridAvailability[s][y][t]
					supply += a * (d.GridImport[s][y][t] - d.GridExport[s][y][t])
				}
				if d.BatteryOut != nil {
					supply += d.BatteryOut[s][y][t] - d.BatteryIn[s][y][t]
				}
				supply += d.LostLoad[s][y][t] - d.Curtailment[s][y][t]
				c.eq("energy_balance", supply, p.Demand[s][y][t], "s=%d y=%d t=%d", s, y, t)

				if d.SOC != nil {
					soc := d.SOC[s][y][t]
					c.leq("battery_soc_max", soc, capacity.Battery, "s=%d y=%d t=%d", s, y, t)
					c.leq("battery_soc_min", capacity.Battery*(1-p.Battery.DepthOfDischarge), soc, "s=%d y=%d t=%d", s, y, t)
					c.leq("battery_soc_min", 0, soc, "s=%d y=%d t=%d", s, y, t)
				}
				if d.GridImport != nil && !cfg.Grid {
					c.eq("grid_connection", d.GridImport[s][y][t]+d.GridExport[s][y][t], 0, "s=%d y=%d t=%d", s, y, t)
				}
				if d.GridExport != nil && cfg.GridConnection == PurchaseOnly {
					c.eq("grid_purchase_only", d.GridExport[s][y][t], 0, "s=%d y=%d t=%d", s, y, t)
				}
				if d.GenFull != nil {
					for g := range d.GenFull[s][y] {
						full, part := d.GenFull[s][y][g][t], d.GenPartial[s][y][g][t]
						c.eq("generator_units", full+part, capacity.GeneratorUnits[g], "s=%d y=%d g=%d t=%d", s, y, g, t)
						if math.Min(part, math.Abs(1-part)) > c.tol {
							c.v = append(c.v, Violation{Family: "generator_partial", Amount: part,
								Detail: fmt.Sprintf("s=%d y=%d g=%d t=%d not binary", s, y, g, t)})
						}
					}
				}
				lost += d.LostLoad[s][y][t]
				demand += p.Demand[s][y][t]
			}
			c.leq("lost_load_cap", lost, p.LostLoadFraction*demand, "s=%d y=%d", s, y)
		}
	}

	for st := 1; st < len(r.Capacity); st++ {
		prev, cur := r.Capacity[st-1], r.Capacity[st]
		for i := range cur.RES {
			c.leq("capacity_expansion", prev.RES[i], cur.RES[i], "st=%d res=%d", st, i)
		}
		c.leq("capacity_expansion", prev.Battery, cur.Battery, "st=%d battery", st)
		for g := range cur.Generators {
			c.leq("capacity_expansion", prev.Generators[g], cur.Generators[g], "st=%d gen=%d", st, g)
		}
	}
	if cfg.Investment == Brownfield && len(r.Capacity) > 0 {
		first := r.Capacity[0]
		for i, res := range p.Renewables {
			c.leq("brownfield_capacity", res.ExistingCapacity, first.RES[i], "res=%d", i)
		}
		if cfg.Components.HasBattery() {
			c.leq("brownfield_capacity", p.Battery.ExistingCapacity, first.Battery, "battery")
		}
		if cfg.Components.HasGenerators() {
			for g, gen := range p.Generators {
				c.leq("brownfield_capacity", gen.ExistingCapacity, first.Generators[g], "gen=%d", g)
			}
		}
	}

	var npc float64
	for s, sc := range r.Scenarios {
		c.eq("scenario_npc", sc.NPC, r.InvestmentCost+sc.VariableCostAct-r.Salvage, "s=%d", s)
		npc += p.ScenarioWeights[s] * sc.NPC
	}
	c.eq("npc", r.NPC, npc, "weighted scenarios")
	return c.v
}
