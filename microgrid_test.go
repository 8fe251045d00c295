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

	"gonum.org/v1/gonum/floats/scalar"
)

func different(a, b, tol float64) bool {
	return !scalar.EqualWithinAbsOrRel(a, b, tol, tol)
}

// fill returns a [d0][d1][d2] array holding v.
func fill(d0, d1, d2 int, v float64) [][][]float64 {
	o := make([][][]float64, d0)
	for i := range o {
		o[i] = make([][]float64, d1)
		for j := range o[i] {
			o[i][j] = make([]float64, d2)
			for k := range o[i][j] {
				o[i][j][k] = v
			}
		}
	}
	return o
}

func testPV() Renewable {
	return Renewable{
		Name:               "pv",
		UnitCapacity:       1000,
		InverterEfficiency: 1,
		InvestmentCost:     1,
		OMCost:             0.01,
		Lifetime:           25,
		CO2:                50,
		SpecificArea:       0.01,
	}
}

func testBattery() *Battery {
	return &Battery{
		InvestmentCost:           0.5,
		ElectronicInvestmentCost: 0.1,
		OMCost:                   0.02,
		ChargeEfficiency:         0.95,
		DischargeEfficiency:      0.95,
		DepthOfDischarge:         0.8,
		MaxChargeTime:            5,
		MaxDischargeTime:         5,
		Cycles:                   3000,
		InitialSOC:               0.2,
		CO2:                      80,
		UnitCapacity:             5000,
		Lifetime:                 10,
	}
}

// testDiesel has a marginal cost of 0.3 USD/kWh.
func testDiesel() Generator {
	return Generator{
		Name:            "diesel",
		Efficiency:      0.3,
		FuelLHV:         10000,
		UnitCapacity:    100000,
		MinOutput:       0.3,
		PartialLoadCost: 0.05,
		InvestmentCost:  0.5,
		OMCost:          0.01,
		Lifetime:        10,
		CO2:             100,
		FuelCO2:         2.7,
		FuelCost:        0.9,
	}
}

// offGrid returns a single-scenario system with a flat demand of 1 kW and
// one PV unit producing 1 kWh per period.
func offGrid(years, periods int) *Parameters {
	return &Parameters{
		Scenarios:        1,
		Years:            years,
		Periods:          periods,
		StepDuration:     years,
		DiscountRate:     0.05,
		ScenarioWeights:  []float64{1},
		Demand:           fill(1, years, periods, 1000),
		Renewables:       []Renewable{testPV()},
		Production:       fill(1, 1, periods, 1000),
		Battery:          testBattery(),
		LargeM:           1e6,
		LostLoadFraction: 0,
	}
}

func batteryOnly() *Config {
	cfg := DefaultConfig()
	cfg.Components = BatteryOnly
	return &cfg
}

func discount(r float64, n int) float64 { return math.Pow(1+r, -float64(n)) }
