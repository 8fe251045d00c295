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

const weightTol = 1e-6

// checker records the first validation failure.
type checker struct {
	err error
}

func (c *checker) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *checker) nonNeg(name string, v float64) {
	if !finite(v) || v < 0 {
		c.fail(rangeErr("%s must be a finite non-negative number, got %g", name, v))
	}
}

func (c *checker) positive(name string, v float64) {
	if !finite(v) || v <= 0 {
		c.fail(rangeErr("%s must be positive, got %g", name, v))
	}
}

// efficiency checks that v is in (0, 1].
func (c *checker) efficiency(name string, v float64) {
	if !(v > 0 && v <= 1) {
		c.fail(rangeErr("%s must be in (0, 1], got %g", name, v))
	}
}

// fraction checks that v is in [0, 1].
func (c *checker) fraction(name string, v float64) {
	if !(v >= 0 && v <= 1) {
		c.fail(rangeErr("%s must be in [0, 1], got %g", name, v))
	}
}

func (c *checker) series3(name string, a [][][]float64, d0, d1, d2 int, lo, hi float64) {
	if len(a) != d0 {
		c.fail(shapeErr(name, []int{len(a)}, []int{d0, d1, d2}))
		return
	}
	for i, b := range a {
		if len(b) != d1 {
			c.fail(shapeErr(fmt.Sprintf("%s[%d]", name, i), []int{len(b)}, []int{d1, d2}))
			return
		}
		for j, v := range b {
			if len(v) != d2 {
				c.fail(shapeErr(fmt.Sprintf("%s[%d][%d]", name, i, j), []int{len(v)}, []int{d2}))
				return
			}
			for k, x := range v {
				if !(x >= lo && x <= hi) {
					c.fail(rangeErr("%s[%d][%d][%d] must be in [%g, %g], got %g", name, i, j, k, lo, hi, x))
					return
				}
			}
		}
	}
}

func (c *checker) existing(cfg *Config, name string, capacity, age float64) {
	c.nonNeg(name+" existing capacity", capacity)
	c.nonNeg(name+" existing age", age)
	if cfg.Investment == Greenfield && capacity > 0 {
		c.fail(configErr("%s has existing capacity %g but the investment type is greenfield", name, capacity))
	}
}

// Validate checks that p holds every parameter that cfg requires, with
// the right shapes and in range. It also checks cfg itself.
func (p *Parameters) Validate(cfg *Config) error {
	if err := cfg.Check(); err != nil {
		return err
	}
	c := new(checker)
	if p.Scenarios < 1 || p.Years < 1 || p.Periods < 1 {
		return rangeErr("scenarios, years and periods must be at least 1, got %d, %d and %d",
			p.Scenarios, p.Years, p.Periods)
	}
	if p.StepDuration < 1 || p.StepDuration > p.Years {
		return rangeErr("step duration must be in [1, %d], got %d", p.Years, p.StepDuration)
	}
	if p.MinLastStepDuration < 0 || p.MinLastStepDuration > p.StepDuration {
		return rangeErr("minimum last step duration must be in [0, %d], got %d", p.StepDuration, p.MinLastStepDuration)
	}
	if cfg.WACC {
		w := p.WACC
		c.fraction("WACC equity share", w.EquityShare)
		c.fraction("WACC debt share", w.DebtShare)
		c.nonNeg("cost of equity", w.CostOfEquity)
		c.nonNeg("cost of debt", w.CostOfDebt)
		c.fraction("tax rate", w.TaxRate)
		if math.Abs(w.EquityShare+w.DebtShare-1) > weightTol {
			c.fail(rangeErr("WACC equity and debt shares must sum to 1, got %g", w.EquityShare+w.DebtShare))
		}
	} else {
		c.nonNeg("discount rate", p.DiscountRate)
	}
	c.fraction("renewable penetration", p.RenewablePenetration)
	c.fraction("lost load fraction", p.LostLoadFraction)
	c.nonNeg("lost load specific cost", p.LostLoadSpecificCost)
	c.nonNeg("land available", p.LandAvailable)
	c.nonNeg("battery independence days", p.BatteryIndependenceDays)
	c.nonNeg("investment cost limit", p.InvestmentCostLimit)
	if c.err != nil {
		return c.err
	}
	if cfg.Goal == VariableCost && p.InvestmentCostLimit <= 0 {
		return configErr("the variable cost objective requires a positive investment cost limit")
	}

	if len(p.ScenarioWeights) != p.Scenarios {
		return shapeErr("scenario weights", []int{len(p.ScenarioWeights)}, []int{p.Scenarios})
	}
	var sum float64
	for s, w := range p.ScenarioWeights {
		c.nonNeg(fmt.Sprintf("weight of scenario %d", s), w)
		sum += w
	}
	if c.err != nil {
		return c.err
	}
	if math.Abs(sum-1) > weightTol {
		return rangeErr("scenario weights must sum to 1, got %g", sum)
	}
	c.series3("demand", p.Demand, p.Scenarios, p.Years, p.Periods, 0, math.MaxFloat64)
	if len(p.Renewables) > 0 || p.Production != nil {
		c.series3("renewable production", p.Production, p.Scenarios, len(p.Renewables), p.Periods, 0, math.MaxFloat64)
	}
	if c.err != nil {
		return c.err
	}

	for _, r := range p.Renewables {
		name := fmt.Sprintf("renewable %q", r.Name)
		c.positive(name+" unit capacity", r.UnitCapacity)
		c.efficiency(name+" inverter efficiency", r.InverterEfficiency)
		c.nonNeg(name+" investment cost", r.InvestmentCost)
		c.nonNeg(name+" O&M cost", r.OMCost)
		c.positive(name+" lifetime", r.Lifetime)
		c.nonNeg(name+" CO2 intensity", r.CO2)
		c.nonNeg(name+" specific area", r.SpecificArea)
		c.existing(cfg, name, r.ExistingCapacity, r.ExistingAge)
	}
	if c.err != nil {
		return c.err
	}
	if err := p.validateGenerators(cfg, c); err != nil {
		return err
	}
	if err := p.validateBattery(cfg, c); err != nil {
		return err
	}
	if err := p.validateGrid(cfg, c); err != nil {
		return err
	}
	if cfg.Formulation == MILP && (cfg.Components.HasBattery() || cfg.Grid) && !(p.LargeM > 0) {
		return rangeErr("the MILP formulation with a battery or grid requires a positive large M, got %g", p.LargeM)
	}
	if p.InvestmentSteps > 0 {
		if _, err := NewIndex(cfg, p); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parameters) validateGenerators(cfg *Config, c *checker) error {
	if !cfg.Components.HasGenerators() {
		return nil
	}
	if len(p.Generators) == 0 {
		return configErr("model components %s include generators, but no generator parameters were given", cfg.Components)
	}
	for _, g := range p.Generators {
		name := fmt.Sprintf("generator %q", g.Name)
		c.efficiency(name+" efficiency", g.Efficiency)
		c.positive(name+" fuel LHV", g.FuelLHV)
		if cfg.Formulation == MILP {
			c.positive(name+" unit capacity", g.UnitCapacity)
		}
		if cfg.PartialLoad {
			if !(g.MinOutput >= 0 && g.MinOutput < 1) {
				c.fail(rangeErr("%s minimum output must be in [0, 1), got %g", name, g.MinOutput))
			}
			if !(g.PartialLoadCost >= 0 && g.PartialLoadCost < 1) {
				c.fail(rangeErr("%s partial load cost must be in [0, 1), got %g", name, g.PartialLoadCost))
			}
		}
		c.nonNeg(name+" investment cost", g.InvestmentCost)
		c.nonNeg(name+" O&M cost", g.OMCost)
		c.positive(name+" lifetime", g.Lifetime)
		c.nonNeg(name+" CO2 intensity", g.CO2)
		c.nonNeg(name+" fuel CO2 intensity", g.FuelCO2)
		c.existing(cfg, name, g.ExistingCapacity, g.ExistingAge)
		switch cfg.FuelCost {
		case ConstantFuelCost:
			c.nonNeg(name+" fuel cost", g.FuelCost)
		case LinearFuelCost:
			c.nonNeg(name+" fuel cost", g.FuelCost)
			c.nonNeg(name+" fuel cost in the last year", g.FuelCost*(1+g.FuelCostRate*float64(p.Years-1)))
		}
	}
	if c.err != nil {
		return c.err
	}
	if cfg.FuelCost != ImportedFuelCost {
		return nil
	}
	if p.FuelCost == nil {
		return configErr("fuel cost mode %s requires a yearly fuel cost table", cfg.FuelCost)
	}
	if len(p.FuelCost) != p.Years {
		return shapeErr("fuel cost", []int{len(p.FuelCost)}, []int{p.Years, len(p.Generators)})
	}
	for y, row := range p.FuelCost {
		if len(row) != len(p.Generators) {
			return shapeErr(fmt.Sprintf("fuel cost[%d]", y), []int{len(row)}, []int{len(p.Generators)})
		}
		for g, v := range row {
			c.nonNeg(fmt.Sprintf("fuel cost[%d][%d]", y, g), v)
		}
	}
	return c.err
}

func (p *Parameters) validateBattery(cfg *Config, c *checker) error {
	if !cfg.Components.HasBattery() {
		if p.BatteryIndependenceDays > 0 {
			return configErr("battery independence requires a battery, but model components are %s", cfg.Components)
		}
		return nil
	}
	b := p.Battery
	if b == nil {
		return configErr("model components %s include a battery, but no battery parameters were given", cfg.Components)
	}
	c.nonNeg("battery investment cost", b.InvestmentCost)
	c.nonNeg("battery electronic investment cost", b.ElectronicInvestmentCost)
	if b.ElectronicInvestmentCost > b.InvestmentCost {
		c.fail(rangeErr("battery electronic investment cost %g exceeds the investment cost %g",
			b.ElectronicInvestmentCost, b.InvestmentCost))
	}
	c.nonNeg("battery O&M cost", b.OMCost)
	c.efficiency("battery charge efficiency", b.ChargeEfficiency)
	c.efficiency("battery discharge efficiency", b.DischargeEfficiency)
	c.efficiency("battery depth of discharge", b.DepthOfDischarge)
	c.positive("battery maximum charge time", b.MaxChargeTime)
	c.positive("battery maximum discharge time", b.MaxDischargeTime)
	c.nonNeg("battery cycles", b.Cycles)
	c.nonNeg("battery replacement cost", b.ReplacementCost)
	c.fraction("battery initial state of charge", b.InitialSOC)
	c.nonNeg("battery CO2 intensity", b.CO2)
	c.nonNeg("battery lifetime", b.Lifetime)
	if cfg.Formulation == MILP {
		c.positive("battery unit capacity", b.UnitCapacity)
	}
	c.existing(cfg, "battery", b.ExistingCapacity, b.ExistingAge)
	return c.err
}

func (p *Parameters) validateGrid(cfg *Config, c *checker) error {
	if !cfg.Grid {
		return nil
	}
	g := p.Grid
	if g == nil {
		return configErr("the grid connection is on, but no grid parameters were given")
	}
	if p.GridAvailability == nil {
		return configErr("the grid connection is on, but no grid availability was given")
	}
	c.nonNeg("grid distance", g.Distance)
	c.nonNeg("grid connection cost", g.ConnectionCost)
	c.nonNeg("grid maintenance fraction", g.MaintenanceFraction)
	c.nonNeg("grid purchase price", g.PurchasePrice)
	c.nonNeg("grid sell price", g.SellPrice)
	c.nonNeg("grid CO2 intensity", g.CO2)
	c.positive("maximum grid power", g.MaxPower)
	if g.ConnectionYear < 0 || g.ConnectionYear >= p.Years {
		c.fail(rangeErr("grid connection year must be in [0, %d), got %d", p.Years, g.ConnectionYear))
	}
	c.series3("grid availability", p.GridAvailability, p.Scenarios, p.Years, p.Periods, 0, 1)
	return c.err
}
