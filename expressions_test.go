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
	"testing"
)

// generatorOnly returns a diesel-only system with a flat demand of 100 kW.
func generatorOnly(years, periods int) (*Config, *Parameters) {
	cfg := DefaultConfig()
	cfg.Components = GeneratorOnly
	p := &Parameters{
		Scenarios:       1,
		Years:           years,
		Periods:         periods,
		StepDuration:    years,
		DiscountRate:    0.05,
		ScenarioWeights: []float64{1},
		Demand:          fill(1, years, periods, 100000),
		Generators:      []Generator{testDiesel()},
	}
	return &cfg, p
}

func TestFuelCostFullYear(t *testing.T) {
	cfg, p := generatorOnly(2, 8760)
	m, err := NewModel(cfg, p, AddVariables)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Build(); err != nil {
		t.Fatal(err)
	}
	x := make([]float64, m.Problem.NumVars())
	for y := 0; y < 2; y++ {
		for h := 0; h < 8760; h++ {
			x[m.Vars.GenEnergy.At(0, y, 0, h)] = 100000
		}
	}
	want := 100 * 8760 * 0.3 * (discount(0.05, 1) + discount(0.05, 2))
	if have := FuelCost(m, 0, true).Eval(x); different(have, want, 1e-9) {
		t.Errorf("actualised fuel cost: have %g, want %g", have, want)
	}
	if have, want := FuelCost(m, 0, false).Eval(x), 100*8760*0.3*2.; different(have, want, 1e-9) {
		t.Errorf("fuel cost: have %g, want %g", have, want)
	}
	// 0.9 USD/L, so 2.7 kg/L gives 3 kg per USD of fuel.
	if have, want := OperationEmissions(m, 0).Eval(x), 100*8760*0.3*2*3.; different(have, want, 1e-9) {
		t.Errorf("emissions: have %g, want %g", have, want)
	}
}

func TestFuelPrice(t *testing.T) {
	cfg, p := generatorOnly(3, 4)
	p.Generators[0].FuelCostRate = 0.1
	cfg.FuelCost = LinearFuelCost
	if have := p.FuelPrice(cfg, 2, 0); different(have, 0.9*1.2, 1e-12) {
		t.Errorf("linear trend: %g", have)
	}
	cfg.FuelCost = ImportedFuelCost
	p.FuelCost = [][]float64{{1}, {2}, {3}}
	if err := p.Validate(cfg); err != nil {
		t.Fatal(err)
	}
	if have := p.FuelPrice(cfg, 1, 0); have != 2 {
		t.Errorf("imported: %g", have)
	}
	if have := p.MarginalCost(cfg, 0, 0); different(have, 1./3000, 1e-12) {
		t.Errorf("marginal cost: %g", have)
	}
}

func TestPartialLoadFuelCurve(t *testing.T) {
	cfg, p := generatorOnly(1, 4)
	cfg.Formulation = MILP
	cfg.PartialLoad = true
	m, err := NewModel(cfg, p, AddVariables)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Build(); err != nil {
		t.Fatal(err)
	}
	c := m.fuelCurve(0)
	full := 1. / 3000
	if c.start == 0 {
		t.Error("partial load should have a start term")
	}
	v := m.Vars
	x := make([]float64, m.Problem.NumVars())
	litres := FuelLitres(m, 0, 0, 0, 0)

	// One unit at minimum output burns pgen of the full-load fuel.
	x[v.GenPartial.At(0, 0, 0, 0)] = 1
	x[v.GenEnergyPartial.At(0, 0, 0, 0)] = 30000
	if have, want := litres.Eval(x), 0.05*100000*full; different(have, want, 1e-9) {
		t.Errorf("minimum output: have %g L, want %g L", have, want)
	}
	// One unit at full output burns the full-load fuel, whichever way it
	// is committed.
	x[v.GenEnergyPartial.At(0, 0, 0, 0)] = 100000
	partial := litres.Eval(x)
	x[v.GenPartial.At(0, 0, 0, 0)] = 0
	x[v.GenEnergyPartial.At(0, 0, 0, 0)] = 0
	x[v.GenFull.At(0, 0, 0, 0)] = 1
	if have, want := litres.Eval(x), 100000*full; different(have, want, 1e-9) || different(partial, want, 1e-9) {
		t.Errorf("full output: have %g L and %g L, want %g L", have, partial, want)
	}
}

func TestSalvage(t *testing.T) {
	cfg := batteryOnly()
	cfg.Investment = Brownfield
	p := offGrid(5, 4)
	p.Renewables[0].Lifetime = 20
	p.Renewables[0].ExistingCapacity = 50000
	p.Renewables[0].ExistingAge = 10
	m, err := NewModel(cfg, p, AddVariables)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Build(); err != nil {
		t.Fatal(err)
	}
	x := make([]float64, m.Problem.NumVars())
	x[m.Vars.RESUnits.At(0, 0)] = 50
	h := discount(0.05, 5)
	want := 50000 * 1 * (20. - 10 - 5) / 20 * h
	if have := Salvage(m).Eval(x); different(have, want, 1e-9) {
		t.Errorf("existing capacity: have %g, want %g", have, want)
	}

	// 10 kW of new capacity keeps (20-5)/20 of its value.
	x[m.Vars.RESUnits.At(0, 0)] = 60
	want += 10000 * 0.75 * h
	if have := Salvage(m).Eval(x); different(have, want, 1e-9) {
		t.Errorf("new capacity: have %g, want %g", have, want)
	}
	// Only the new capacity is an investment.
	if have, want := InvestmentCost(m).Eval(x), 10000.; different(have, want, 1e-9) {
		t.Errorf("investment: have %g, want %g", have, want)
	}
}

func TestBatteryReplacementCost(t *testing.T) {
	b := testBattery()
	if have, want := b.UnitReplacementCost(), (0.5-0.1)/(3000*2*0.8); different(have, want, 1e-12) {
		t.Errorf("derived: %g, want %g", have, want)
	}
	b.ReplacementCost = 0.01
	if b.UnitReplacementCost() != 0.01 {
		t.Error("explicit replacement cost should be used")
	}
}
