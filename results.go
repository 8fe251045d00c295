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
	"time"

	"github.com/spatialmodel/microgrid/milp"
	"gonum.org/v1/gonum/floats"
)

// StepCapacity is the installed capacity during one investment step.
type StepCapacity struct {
	RES            []float64 // [r] W
	RESUnits       []float64 // [r]
	Battery        float64   // Wh
	BatteryUnits   float64
	Generators     []float64 // [g] W
	GeneratorUnits []float64 // [g]
}

// ScenarioCosts is the cost and emission breakdown of one scenario.
// Costs are in USD and emissions in kg.
type ScenarioCosts struct {
	NPC                float64
	VariableCostAct    float64
	VariableCostNonAct float64
	Replacement        float64
	Fuel               float64
	Grid               float64
	LostLoad           float64
	CO2                float64
}

// Dispatch holds the hourly operation of the microgrid [Wh]. Arrays are
// indexed by [scenario][year][period], with the renewable or generator
// index before the period where present. Arrays of inactive components
// are nil.
type Dispatch struct {
	RES              [][][][]float64
	Generators       [][][][]float64
	GenFull          [][][][]float64
	GenPartial       [][][][]float64
	GenEnergyPartial [][][][]float64
	BatteryIn        [][][]float64
	BatteryOut       [][][]float64
	SOC              [][][]float64
	GridImport       [][][]float64
	GridExport       [][][]float64
	LostLoad         [][][]float64
	Curtailment      [][][]float64
}

// Results is the outcome of a solve.
type Results struct {
	RunID     string
	InputHash string

	Status    milp.Status
	Objective float64
	// Bound is the best proven bound on the objective.
	Bound   float64
	Nodes   int
	Elapsed time.Duration

	Capacity []StepCapacity // [st]

	NPC            float64
	InvestmentCost float64
	OMAct          float64
	OMNonAct       float64
	Salvage        float64
	VariableCost   float64
	CO2            float64
	LCAEmissions   float64
	// LCOE is the NPC per Wh of discounted, scenario-weighted demand [USD/Wh].
	LCOE float64

	Scenarios []ScenarioCosts
	Dispatch  Dispatch

	// Pareto holds the points of a multi-objective sweep.
	Pareto []ParetoPoint

	// Diagnostics is set when the solve failed.
	Diagnostics *Diagnostics

	problem *milp.Problem
	x       []float64
}

// Extract copies the solution of m into a Results value.
func Extract(m *Model, sol *milp.Solution) *Results {
	ix, v, p, x := m.Index, m.Vars, m.Params, sol.X
	r := &Results{
		Status:    sol.Status,
		Objective: sol.Objective,
		Bound:     sol.Bound,
		Nodes:     sol.Nodes,
		Elapsed:   sol.Elapsed,
		problem:   m.Problem,
		x:         x,

		NPC:            x[v.NPC],
		InvestmentCost: x[v.InvestmentCost],
		OMAct:          x[v.OMAct],
		OMNonAct:       x[v.OMNonAct],
		Salvage:        x[v.Salvage],
		VariableCost:   x[v.VariableCost],
		CO2:            x[v.CO2],
		LCAEmissions:   x[v.LCAEmissions],
	}
	r.Capacity = make([]StepCapacity, ix.Steps)
	for st := range r.Capacity {
		c := &r.Capacity[st]
		c.RES = make([]float64, ix.Renewables)
		c.RESUnits = make([]float64, ix.Renewables)
		for i := range c.RES {
			c.RESUnits[i] = x[v.RESUnits.At(st, i)]
			c.RES[i] = RESCapacity(m, st, i).Eval(x)
		}
		if m.Config.Components.HasBattery() {
			c.Battery = BatteryCapacity(m, st).Eval(x)
			if !v.BatteryUnits.Empty() {
				c.BatteryUnits = x[v.BatteryUnits.At(st)]
			}
		}
		if m.Config.Components.HasGenerators() {
			c.Generators = make([]float64, ix.Generators)
			c.GeneratorUnits = make([]float64, ix.Generators)
			for g := range c.Generators {
				c.Generators[g] = GenCapacity(m, st, g).Eval(x)
				if !v.GenUnits.Empty() {
					c.GeneratorUnits[g] = x[v.GenUnits.At(st, g)]
				}
			}
		}
	}
	r.Scenarios = make([]ScenarioCosts, ix.Scenarios)
	for s := range r.Scenarios {
		r.Scenarios[s] = ScenarioCosts{
			NPC:                x[v.ScenarioNPC.At(s)],
			VariableCostAct:    x[v.ScenarioVarCostAct.At(s)],
			VariableCostNonAct: x[v.ScenarioVarCostNonAct.At(s)],
			Replacement:        x[v.ScenarioReplacement.At(s)],
			Fuel:               x[v.ScenarioFuel.At(s)],
			Grid:               x[v.ScenarioGrid.At(s)],
			LostLoad:           x[v.ScenarioLostLoad.At(s)],
			CO2:                x[v.ScenarioCO2.At(s)],
		}
	}
	r.Dispatch = Dispatch{
		RES:              reshape4(v.RESEnergy, x),
		Generators:       reshape4(v.GenEnergy, x),
		GenFull:          reshape4(v.GenFull, x),
		GenPartial:       reshape4(v.GenPartial, x),
		GenEnergyPartial: reshape4(v.GenEnergyPartial, x),
		BatteryIn:        reshape3(v.BatteryIn, x),
		BatteryOut:       reshape3(v.BatteryOut, x),
		SOC:              reshape3(v.SOC, x),
		GridImport:       reshape3(v.GridImport, x),
		GridExport:       reshape3(v.GridExport, x),
		LostLoad:         reshape3(v.LostLoad, x),
		Curtailment:      reshape3(v.Curtailment, x),
	}
	var demand float64
	for s, w := range p.ScenarioWeights {
		for y := 0; y < ix.Years; y++ {
			f := w * ix.YearFactor(y)
			for _, d := range p.Demand[s][y] {
				demand += f * d
			}
		}
	}
	if demand > 0 {
		r.LCOE = r.NPC / demand
	}
	return r
}

func reshape3(b milp.Block, x []float64) [][][]float64 {
	if b.Empty() {
		return nil
	}
	d := b.Dims()
	vals := b.Values(x)
	o := make([][][]float64, d[0])
	for i := range o {
		o[i] = make([][]float64, d[1])
		for j := range o[i] {
			off := (i*d[1] + j) * d[2]
			o[i][j] = vals[off : off+d[2]]
		}
	}
	return o
}

func reshape4(b milp.Block, x []float64) [][][][]float64 {
	if b.Empty() {
		return nil
	}
	d := b.Dims()
	vals := b.Values(x)
	o := make([][][][]float64, d[0])
	for i := range o {
		o[i] = make([][][]float64, d[1])
		for j := range o[i] {
			o[i][j] = make([][]float64, d[2])
			for k := range o[i][j] {
				off := ((i*d[1]+j)*d[2] + k) * d[3]
				o[i][j][k] = vals[off : off+d[3]]
			}
		}
	}
	return o
}

// Solution returns the value of every model variable keyed by name.
// It is nil for failed solves.
func (r *Results) Solution() map[string]float64 {
	if r.problem == nil || r.x == nil {
		return nil
	}
	o := make(map[string]float64, len(r.x))
	for i, v := range r.x {
		o[r.problem.Name(milp.Var(i))] = v
	}
	return o
}

// Scalars returns the scalar results keyed by name, for use in reports.
func (r *Results) Scalars() map[string]float64 {
	o := map[string]float64{
		"NPC":            r.NPC,
		"InvestmentCost": r.InvestmentCost,
		"OMAct":          r.OMAct,
		"OMNonAct":       r.OMNonAct,
		"Salvage":        r.Salvage,
		"VariableCost":   r.VariableCost,
		"CO2":            r.CO2,
		"LCAEmissions":   r.LCAEmissions,
		"LCOE":           r.LCOE,
		"Objective":      r.Objective,
	}
	lost := sum3(r.Dispatch.LostLoad)
	curtail := sum3(r.Dispatch.Curtailment)
	demandMet := sum4(r.Dispatch.RES) + sum4(r.Dispatch.Generators) + sum3(r.Dispatch.GridImport) +
		sum3(r.Dispatch.BatteryOut) - sum3(r.Dispatch.BatteryIn) - sum3(r.Dispatch.GridExport) - curtail
	o["LostLoad"] = lost
	o["Curtailment"] = curtail
	o["EnergyServed"] = demandMet
	if n := len(r.Capacity); n > 0 {
		last := r.Capacity[n-1]
		o["BatteryCapacity"] = last.Battery
		o["RESCapacity"] = sum1(last.RES)
		o["GeneratorCapacity"] = sum1(last.Generators)
	}
	return o
}

func sum1(a []float64) float64 { return floats.Sum(a) }

func sum3(a [][][]float64) float64 {
	var s float64
	for _, b := range a {
		for _, c := range b {
			s += sum1(c)
		}
	}
	return s
}

func sum4(a [][][][]float64) float64 {
	var s float64
	for _, b := range a {
		s += sum3(b)
	}
	return s
}
