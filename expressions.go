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

// RESCapacity returns the installed capacity of renewable r in step st [W].
func RESCapacity(m *Model, st, r int) milp.LinExpr {
	return milp.Expr(m.Vars.RESUnits.At(st, r), m.Params.Renewables[r].UnitCapacity)
}

// BatteryCapacity returns the installed battery capacity in step st [Wh].
func BatteryCapacity(m *Model, st int) milp.LinExpr {
	if m.Config.Formulation == MILP {
		return milp.Expr(m.Vars.BatteryUnits.At(st), m.Params.Battery.UnitCapacity)
	}
	return milp.Expr(m.Vars.BatteryCapacity.At(st), 1)
}

// GenCapacity returns the installed capacity of generator g in step st [W].
func GenCapacity(m *Model, st, g int) milp.LinExpr {
	if m.Config.Formulation == MILP {
		return milp.Expr(m.Vars.GenUnits.At(st, g), m.Params.Generators[g].UnitCapacity)
	}
	return milp.Expr(m.Vars.GenCapacity.At(st, g), 1)
}

// asset is the part of a component's parameters needed for capital
// cost, salvage and life-cycle emission accounting.
type asset struct {
	name     string
	capacity func(st int) milp.LinExpr
	invCost  float64
	omFrac   float64
	lifetime float64
	existing float64
	age      float64
	co2      float64 // [kg/W] or [kg/Wh]
}

// assets returns the sizeable components of m.
func assets(m *Model) []asset {
	p := m.Params
	var o []asset
	for r, res := range p.Renewables {
		r := r
		o = append(o, asset{
			name:     res.Name,
			capacity: func(st int) milp.LinExpr { return RESCapacity(m, st, r) },
			invCost:  res.InvestmentCost,
			omFrac:   res.OMCost,
			lifetime: res.Lifetime,
			existing: m.existing(res.ExistingCapacity),
			age:      res.ExistingAge,
			co2:      res.CO2 / 1000,
		})
	}
	if m.Config.Components.HasBattery() {
		b := p.Battery
		o = append(o, asset{
			name:     "battery",
			capacity: func(st int) milp.LinExpr { return BatteryCapacity(m, st) },
			invCost:  b.InvestmentCost,
			omFrac:   b.OMCost,
			lifetime: b.Lifetime,
			existing: m.existing(b.ExistingCapacity),
			age:      b.ExistingAge,
			co2:      b.CO2 / 1000,
		})
	}
	if m.Config.Components.HasGenerators() {
		for g, gen := range p.Generators {
			g := g
			o = append(o, asset{
				name:     gen.Name,
				capacity: func(st int) milp.LinExpr { return GenCapacity(m, st, g) },
				invCost:  gen.InvestmentCost,
				omFrac:   gen.OMCost,
				lifetime: gen.Lifetime,
				existing: m.existing(gen.ExistingCapacity),
				age:      gen.ExistingAge,
				co2:      gen.CO2 / 1000,
			})
		}
	}
	return o
}

// existing returns the existing capacity that counts for the investment type.
func (m *Model) existing(capacity float64) float64 {
	if m.Config.Investment == Brownfield {
		return capacity
	}
	return 0
}

// added returns the capacity of a added in step st: the difference to the
// previous step, or to the existing capacity in the first step.
func (a asset) added(st int) milp.LinExpr {
	e := a.capacity(st)
	if st == 0 {
		e.AddConst(-a.existing)
	} else {
		e.AddExpr(a.capacity(st-1), -1)
	}
	return e
}

// alive reports whether existing capacity is still within its lifetime in
// year y. Assets without a lifetime never expire.
func (a asset) alive(y int) bool {
	return a.lifetime <= 0 || a.age+float64(y)+1 <= a.lifetime
}

// InvestmentCost returns the discounted cost of all capacity added over
// the horizon, including the grid connection [USD].
func InvestmentCost(m *Model) milp.LinExpr {
	ix := m.Index
	var e milp.LinExpr
	for _, a := range assets(m) {
		for st := 0; st < ix.Steps; st++ {
			e.AddExpr(a.added(st), a.invCost*ix.StepFactor(st))
		}
	}
	if m.Config.Grid {
		g := m.Params.Grid
		e.AddConst(g.Distance * g.ConnectionCost * ix.discount(g.ConnectionYear))
	}
	return e
}

func (m *Model) yearFactor(y int, actualised bool) float64 {
	if actualised {
		return m.Index.YearFactor(y)
	}
	return 1
}

// FixedOM returns the yearly fixed O&M cost summed over the horizon [USD],
// discounted if actualised is true. New capacity is charged for every year
// and existing capacity until the end of its lifetime.
func FixedOM(m *Model, actualised bool) milp.LinExpr {
	ix := m.Index
	var e milp.LinExpr
	for _, a := range assets(m) {
		for _, ys := range ix.YearsSteps() {
			f := m.yearFactor(ys.Year, actualised) * a.invCost * a.omFrac
			e.AddExpr(a.capacity(ys.Step), f)
			e.AddConst(-a.existing * f)
			if a.alive(ys.Year) {
				e.AddConst(a.existing * f)
			}
		}
	}
	if m.Config.Grid {
		g := m.Params.Grid
		for y := g.ConnectionYear; y < ix.Years; y++ {
			e.AddConst(g.Distance * g.ConnectionCost * g.MaintenanceFraction * m.yearFactor(y, actualised))
		}
	}
	return e
}

// Salvage returns the residual value of all assets at the end of the
// horizon, discounted to the first year [USD]. Capacity added in step st
// keeps max(0, L − (Y − start(st)))/L of its value, and existing capacity
// max(0, L − age − Y)/L.
func Salvage(m *Model) milp.LinExpr {
	ix := m.Index
	Y := float64(ix.Years)
	h := ix.HorizonFactor()
	var e milp.LinExpr
	for _, a := range assets(m) {
		if a.lifetime <= 0 {
			continue
		}
		for st := 0; st < ix.Steps; st++ {
			rem := math.Max(0, a.lifetime-(Y-float64(ix.StepStart(st)))) / a.lifetime
			e.AddExpr(a.added(st), a.invCost*rem*h)
		}
		rem := math.Max(0, a.lifetime-a.age-Y) / a.lifetime
		e.AddConst(a.existing * a.invCost * rem * h)
	}
	return e
}

// fuelCurve holds the fuel use of a generator [L] per Wh at full load,
// per Wh of the partially loaded unit, and per partially loaded unit.
type fuelCurve struct {
	full, partial, start float64
}

func (m *Model) fuelCurve(g int) fuelCurve {
	gen := &m.Params.Generators[g]
	full := 1 / (gen.FuelLHV * gen.Efficiency)
	if !m.Config.PartialLoad {
		return fuelCurve{full: full}
	}
	k := (1 - gen.PartialLoadCost) / (1 - gen.MinOutput)
	return fuelCurve{
		full:    full,
		partial: k * full,
		start:   (gen.PartialLoadCost - gen.MinOutput*k) * gen.UnitCapacity * full,
	}
}

// FuelLitres returns the fuel burnt by generator g in scenario s, year y
// and period t [L]. With partial load it follows the piecewise-affine fuel
// curve: fully loaded units at the full-load rate and the partially
// loaded unit at a reduced rate plus a fixed start term.
func FuelLitres(m *Model, s, y, g, t int) milp.LinExpr {
	v := m.Vars
	c := m.fuelCurve(g)
	var e milp.LinExpr
	if !m.Config.PartialLoad {
		e.Add(v.GenEnergy.At(s, y, g, t), c.full)
		return e
	}
	e.Add(v.GenFull.At(s, y, g, t), c.full*m.Params.Generators[g].UnitCapacity)
	e.Add(v.GenEnergyPartial.At(s, y, g, t), c.partial)
	e.Add(v.GenPartial.At(s, y, g, t), c.start)
	return e
}

// ReplacementCost returns the battery wear cost of scenario s [USD],
// charged on both charge and discharge throughput.
func ReplacementCost(m *Model, s int, actualised bool) milp.LinExpr {
	var e milp.LinExpr
	if !m.Config.Components.HasBattery() {
		return e
	}
	v := m.Vars
	c := m.Params.Battery.UnitReplacementCost()
	for y := 0; y < m.Index.Years; y++ {
		f := c * m.yearFactor(y, actualised)
		for t := 0; t < m.Index.Periods; t++ {
			e.Add(v.BatteryIn.At(s, y, t), f)
			e.Add(v.BatteryOut.At(s, y, t), f)
		}
	}
	return e
}

// FuelCost returns the generator fuel cost of scenario s [USD].
func FuelCost(m *Model, s int, actualised bool) milp.LinExpr {
	var e milp.LinExpr
	if !m.Config.Components.HasGenerators() {
		return e
	}
	for y := 0; y < m.Index.Years; y++ {
		for g := 0; g < m.Index.Generators; g++ {
			f := m.Params.FuelPrice(m.Config, y, g) * m.yearFactor(y, actualised)
			for t := 0; t < m.Index.Periods; t++ {
				e.AddExpr(FuelLitres(m, s, y, g, t), f)
			}
		}
	}
	return e
}

// GridCost returns the cost of grid purchases net of sales revenue in
// scenario s [USD]. Revenue only counts when selling is allowed.
func GridCost(m *Model, s int, actualised bool) milp.LinExpr {
	var e milp.LinExpr
	if !m.Config.Grid {
		return e
	}
	v, g := m.Vars, m.Params.Grid
	sell := m.Config.GridConnection == PurchaseSell
	for y := 0; y < m.Index.Years; y++ {
		f := m.yearFactor(y, actualised) / 1000
		for t := 0; t < m.Index.Periods; t++ {
			e.Add(v.GridImport.At(s, y, t), g.PurchasePrice*f)
			if sell {
				e.Add(v.GridExport.At(s, y, t), -g.SellPrice*f)
			}
		}
	}
	return e
}

// LostLoadCost returns the penalty for unserved demand in scenario s [USD].
func LostLoadCost(m *Model, s int, actualised bool) milp.LinExpr {
	var e milp.LinExpr
	for y := 0; y < m.Index.Years; y++ {
		f := m.Params.LostLoadSpecificCost * m.yearFactor(y, actualised)
		for t := 0; t < m.Index.Periods; t++ {
			e.Add(m.Vars.LostLoad.At(s, y, t), f)
		}
	}
	return e
}

// LCAEmissions returns the life-cycle emissions of the capacity added over
// the horizon [kg].
func LCAEmissions(m *Model) milp.LinExpr {
	var e milp.LinExpr
	for _, a := range assets(m) {
		for st := 0; st < m.Index.Steps; st++ {
			e.AddExpr(a.added(st), a.co2)
		}
	}
	return e
}

// OperationEmissions returns the emissions of fuel burning and grid
// purchases in scenario s over the horizon [kg].
func OperationEmissions(m *Model, s int) milp.LinExpr {
	var e milp.LinExpr
	ix, v := m.Index, m.Vars
	for y := 0; y < ix.Years; y++ {
		if m.Config.Components.HasGenerators() {
			for g := 0; g < ix.Generators; g++ {
				f := m.Params.Generators[g].FuelCO2
				for t := 0; t < ix.Periods; t++ {
					e.AddExpr(FuelLitres(m, s, y, g, t), f)
				}
			}
		}
		if m.Config.Grid {
			f := m.Params.Grid.CO2 / 1000
			for t := 0; t < ix.Periods; t++ {
				e.Add(v.GridImport.At(s, y, t), f)
			}
		}
	}
	return e
}
