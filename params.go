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
)

// Renewable holds the parameters of a renewable source. Energies are in
// Wh per one-hour period, so powers and energies share units.
type Renewable struct {
	Name string

	// UnitCapacity is the nominal capacity of one unit [W].
	UnitCapacity       float64
	InverterEfficiency float64

	// InvestmentCost is the specific investment cost [USD/W] and OMCost
	// the yearly fixed O&M cost as a fraction of it.
	InvestmentCost float64
	OMCost         float64

	// Lifetime [years].
	Lifetime float64

	// CO2 is the life-cycle emission intensity [kg/kW].
	CO2 float64

	// SpecificArea is the land used per installed watt [m²/W].
	SpecificArea float64

	// ExistingCapacity [W] and ExistingAge [years] describe assets that
	// are already installed in a brownfield model.
	ExistingCapacity float64
	ExistingAge      float64
}

// Generator holds the parameters of a generator type.
type Generator struct {
	Name string

	Efficiency float64

	// FuelLHV is the lower heating value of the fuel [Wh/L].
	FuelLHV float64

	// UnitCapacity is the nominal capacity of one unit [W]. It is
	// required by the MILP formulation.
	UnitCapacity float64

	// MinOutput is the minimum output of a partially loaded unit as a
	// fraction of UnitCapacity, and PartialLoadCost (pgen) the fuel-curve
	// intercept as a fraction of full-load cost.
	MinOutput       float64
	PartialLoadCost float64

	InvestmentCost float64 // [USD/W]
	OMCost         float64
	Lifetime       float64

	CO2     float64 // [kg/kW]
	FuelCO2 float64 // [kg/L]

	// FuelCost is the fuel price [USD/L] in the constant fuel cost mode
	// and the price in the first year in the linear trend mode, where it
	// grows by FuelCostRate·FuelCost per year.
	FuelCost     float64
	FuelCostRate float64

	ExistingCapacity float64
	ExistingAge      float64
}

// Battery holds the parameters of the battery bank.
type Battery struct {
	// InvestmentCost is the specific investment cost [USD/Wh], of which
	// ElectronicInvestmentCost is for the power electronics that are not
	// worn by cycling.
	InvestmentCost           float64
	ElectronicInvestmentCost float64
	OMCost                   float64

	ChargeEfficiency    float64
	DischargeEfficiency float64
	DepthOfDischarge    float64

	// MaxChargeTime and MaxDischargeTime [h] limit the flows to
	// capacity divided by the time.
	MaxChargeTime    float64
	MaxDischargeTime float64

	// Cycles is the cycle life, used to derive ReplacementCost when it
	// is zero.
	Cycles float64

	// ReplacementCost is the wear cost per Wh of throughput [USD/Wh].
	ReplacementCost float64

	InitialSOC float64
	CO2        float64 // [kg/kWh]

	// UnitCapacity [Wh] is required by the MILP formulation.
	UnitCapacity float64

	ExistingCapacity float64
	ExistingAge      float64

	// Lifetime [years] is used for salvage. Zero disables battery salvage.
	Lifetime float64
}

// UnitReplacementCost returns the throughput wear cost [USD/Wh]. If
// ReplacementCost is not set it is derived from the cost of the cells
// and the cycle life.
func (b *Battery) UnitReplacementCost() float64 {
	if b.ReplacementCost > 0 || b.Cycles <= 0 {
		return b.ReplacementCost
	}
	return (b.InvestmentCost - b.ElectronicInvestmentCost) / (b.Cycles * 2 * b.DepthOfDischarge)
}

// Grid holds the parameters of the national grid connection.
type Grid struct {
	Distance            float64 // [km]
	ConnectionCost      float64 // [USD/km]
	MaintenanceFraction float64

	PurchasePrice float64 // [USD/kWh]
	SellPrice     float64 // [USD/kWh]
	CO2           float64 // [kg/kWh]

	// MaxPower limits each grid flow [W].
	MaxPower float64

	// ConnectionYear is the zero-based first year with a connection.
	ConnectionYear int
}

// WACC holds the capital structure used to compute the weighted
// average cost of capital.
type WACC struct {
	EquityShare  float64
	CostOfEquity float64
	DebtShare    float64
	CostOfDebt   float64
	TaxRate      float64
}

// Rate returns e·Re + d·Rd·(1−tax).
func (w WACC) Rate() float64 {
	return w.EquityShare*w.CostOfEquity + w.DebtShare*w.CostOfDebt*(1-w.TaxRate)
}

// Parameters holds the numeric inputs of a model. All arrays use
// zero-based indices in the order given in their field documentation.
// Parameters must not be modified while a model built from them is in use.
type Parameters struct {
	Scenarios int
	Years     int
	// Periods is the number of one-hour periods per year.
	Periods int

	// StepDuration is the length of an investment step [years]. A
	// trailing remainder shorter than MinLastStepDuration is merged into
	// the last step. InvestmentSteps may be given to check the derived
	// number of steps; zero means derive it.
	StepDuration        int
	MinLastStepDuration int
	InvestmentSteps     int

	DiscountRate float64
	WACC         WACC

	// RenewablePenetration is the minimum share of renewable energy in
	// each step. Zero disables the constraint.
	RenewablePenetration float64

	// LostLoadFraction is the maximum unserved share of the yearly demand
	// and LostLoadSpecificCost its cost [USD/Wh].
	LostLoadFraction     float64
	LostLoadSpecificCost float64

	// InvestmentCostLimit [USD] applies when minimising variable cost.
	InvestmentCostLimit float64

	// LargeM bounds the flows switched by single-flow binaries [W].
	LargeM float64

	// LandAvailable [m²] limits renewable installations. Zero means no limit.
	LandAvailable float64

	// BatteryIndependenceDays, when positive, requires the battery to
	// cover the average daily demand for that many days.
	BatteryIndependenceDays float64

	ScenarioWeights []float64

	// Demand [W] is indexed by [scenario][year][period].
	Demand [][][]float64

	Renewables []Renewable
	// Production is the output of one renewable unit [W], indexed by
	// [scenario][renewable][period].
	Production [][][]float64

	Generators []Generator
	// FuelCost [USD/L] is indexed by [year][generator] and used in the
	// imported fuel cost mode.
	FuelCost [][]float64

	Battery *Battery
	Grid    *Grid
	// GridAvailability is 1 when the grid is available and 0 otherwise,
	// indexed by [scenario][year][period].
	GridAvailability [][][]float64
}

// Rate returns the discount rate in effect for cfg.
func (p *Parameters) Rate(cfg *Config) float64 {
	if cfg.WACC {
		return p.WACC.Rate()
	}
	return p.DiscountRate
}

// FuelPrice returns the fuel price [USD/L] of generator g in year y.
func (p *Parameters) FuelPrice(cfg *Config, y, g int) float64 {
	gen := &p.Generators[g]
	switch cfg.FuelCost {
	case LinearFuelCost:
		return gen.FuelCost * (1 + gen.FuelCostRate*float64(y))
	case ImportedFuelCost:
		return p.FuelCost[y][g]
	default:
		return gen.FuelCost
	}
}

// MarginalCost returns the full-load fuel cost of generator g in year y
// [USD/Wh].
func (p *Parameters) MarginalCost(cfg *Config, y, g int) float64 {
	gen := &p.Generators[g]
	return p.FuelPrice(cfg, y, g) / (gen.FuelLHV * gen.Efficiency)
}

// AverageDailyDemand returns the mean demand per day [Wh] over all
// scenarios and years.
func (p *Parameters) AverageDailyDemand() float64 {
	var sum float64
	var n int
	for _, sy := range p.Demand {
		for _, yt := range sy {
			for _, v := range yt {
				sum += v
			}
			n += len(yt)
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * 24
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
