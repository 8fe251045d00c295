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

package mgutil

import (
	"fmt"
	"math"
	"sort"

	"github.com/Knetic/govaluate"
	"github.com/spatialmodel/microgrid"
	"github.com/tealeg/xlsx"
)

// reportFunctions are the functions available to report expressions.
var reportFunctions = map[string]govaluate.ExpressionFunction{
	"abs": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("microgrid: got %d arguments for function 'abs', but needs 1", len(arg))
		}
		return math.Abs(arg[0].(float64)), nil
	},
	"max": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 2 {
			return nil, fmt.Errorf("microgrid: got %d arguments for function 'max', but needs 2", len(arg))
		}
		return math.Max(arg[0].(float64), arg[1].(float64)), nil
	},
	"min": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 2 {
			return nil, fmt.Errorf("microgrid: got %d arguments for function 'min', but needs 2", len(arg))
		}
		return math.Min(arg[0].(float64), arg[1].(float64)), nil
	},
}

// EvaluateReport evaluates the report expressions in vars over the result
// scalars. An expression may refer to the scalars by name.
func EvaluateReport(vars map[string]string, scalars map[string]float64) (map[string]float64, error) {
	params := make(map[string]interface{}, len(scalars))
	for k, v := range scalars {
		params[k] = v
	}
	o := make(map[string]float64, len(vars))
	for name, expr := range vars {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, reportFunctions)
		if err != nil {
			return nil, fmt.Errorf("microgrid: report variable %s: %v", name, err)
		}
		for _, v := range e.Vars() {
			if _, ok := params[v]; !ok {
				return nil, fmt.Errorf("microgrid: report variable %s: undefined variable name '%s'", name, v)
			}
		}
		r, err := e.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("microgrid: report variable %s: %v", name, err)
		}
		f, ok := r.(float64)
		if !ok {
			return nil, fmt.Errorf("microgrid: report variable %s evaluates to %v, not a number", name, r)
		}
		o[name] = f
	}
	return o, nil
}

// workbook builds the results spreadsheet.
type workbook struct {
	f   *xlsx.File
	err error
}

func (w *workbook) sheet(name string, header ...string) *xlsx.Sheet {
	if w.err != nil {
		return nil
	}
	s, err := w.f.AddSheet(name)
	if err != nil {
		w.err = fmt.Errorf("microgrid: adding sheet %s: %v", name, err)
		return nil
	}
	if len(header) > 0 {
		row := s.AddRow()
		for _, h := range header {
			row.AddCell().SetString(h)
		}
	}
	return s
}

// row appends a row whose first cells are labels and the rest numbers.
func row(s *xlsx.Sheet, labels []string, values ...float64) {
	if s == nil {
		return
	}
	r := s.AddRow()
	for _, l := range labels {
		r.AddCell().SetString(l)
	}
	for _, v := range values {
		r.AddCell().SetFloat(v)
	}
}

func sortedKeys(m map[string]float64) []string {
	k := make([]string, 0, len(m))
	for n := range m {
		k = append(k, n)
	}
	sort.Strings(k)
	return k
}

// WriteWorkbook writes the results r of the model described by cfg and p
// to an xlsx workbook at path. Years, steps, scenarios and periods are
// 1-based in the workbook. The report values are added to the summary.
func WriteWorkbook(path string, cfg *microgrid.Config, p *microgrid.Parameters, r *microgrid.Results, report map[string]float64) error {
	w := &workbook{f: xlsx.NewFile()}

	summary := w.sheet("Summary", "Name", "Value")
	for _, kv := range [][2]string{
		{"RunID", r.RunID},
		{"InputHash", r.InputHash},
		{"Status", r.Status.String()},
		{"Elapsed", durationString(r.Elapsed)},
		{"Formulation", cfg.Formulation.String()},
		{"Goal", cfg.Goal.String()},
		{"MultiObjective", cfg.MultiObjective.String()},
	} {
		row(summary, kv[:])
	}
	if r.Diagnostics != nil {
		d := r.Diagnostics
		row(summary, []string{"Diagnostics", d.Message})
		for _, f := range d.Conflicts {
			row(summary, []string{"Conflict", f})
		}
		for _, f := range d.Families {
			row(summary, []string{"InfeasibleFamily", f})
		}
	}
	if r.Status.HasSolution() {
		row(summary, []string{"Bound"}, r.Bound)
		row(summary, []string{"Nodes"}, float64(r.Nodes))
		scalars := r.Scalars()
		for _, k := range sortedKeys(scalars) {
			row(summary, []string{k}, scalars[k])
		}
		for _, k := range sortedKeys(report) {
			row(summary, []string{k}, report[k])
		}
		w.capacity(p, r)
		w.costs(r)
		for s := 0; s < len(r.Dispatch.RES) && s < p.Scenarios; s++ {
			w.dispatch(p, r, s)
		}
	}
	if len(r.Pareto) > 0 {
		pareto := w.sheet("Pareto", "Point", "Epsilon", "Economic", "CO2", "Status")
		for i, pt := range r.Pareto {
			if pareto == nil {
				break
			}
			xr := pareto.AddRow()
			xr.AddCell().SetInt(i + 1)
			xr.AddCell().SetFloat(pt.Epsilon)
			xr.AddCell().SetFloat(pt.Economic)
			xr.AddCell().SetFloat(pt.CO2)
			xr.AddCell().SetString(pt.Status.String())
		}
	}
	if w.err != nil {
		return w.err
	}
	if err := w.f.Save(path); err != nil {
		return fmt.Errorf("microgrid: saving results workbook: %v", err)
	}
	return nil
}

func (w *workbook) capacity(p *microgrid.Parameters, r *microgrid.Results) {
	header := []string{"Step"}
	for _, res := range p.Renewables {
		header = append(header, res.Name+" [W]", res.Name+" units")
	}
	header = append(header, "Battery [Wh]", "Battery units")
	for _, g := range p.Generators {
		header = append(header, g.Name+" [W]", g.Name+" units")
	}
	s := w.sheet("Capacity", header...)
	for st, c := range r.Capacity {
		var v []float64
		for i := range c.RES {
			v = append(v, c.RES[i], c.RESUnits[i])
		}
		v = append(v, c.Battery, c.BatteryUnits)
		for g := range c.Generators {
			v = append(v, c.Generators[g], c.GeneratorUnits[g])
		}
		row(s, []string{fmt.Sprint(st + 1)}, v...)
	}
}

func (w *workbook) costs(r *microgrid.Results) {
	s := w.sheet("Scenarios", "Scenario", "NPC [USD]", "Variable cost actualised [USD]",
		"Variable cost [USD]", "Battery replacement [USD]", "Fuel [USD]", "Grid [USD]",
		"Lost load [USD]", "CO2 [kg]")
	for i, c := range r.Scenarios {
		row(s, []string{fmt.Sprint(i + 1)}, c.NPC, c.VariableCostAct, c.VariableCostNonAct,
			c.Replacement, c.Fuel, c.Grid, c.LostLoad, c.CO2)
	}
}

func (w *workbook) dispatch(p *microgrid.Parameters, r *microgrid.Results, s int) {
	d := r.Dispatch
	header := []string{"Year", "Period", "Demand"}
	type series func(y, t int) float64
	var cols []series
	for i, res := range p.Renewables {
		i := i
		header = append(header, res.Name)
		cols = append(cols, func(y, t int) float64 { return d.RES[s][y][i][t] })
	}
	if d.Generators != nil {
		for g, gen := range p.Generators {
			g := g
			header = append(header, gen.Name)
			cols = append(cols, func(y, t int) float64 { return d.Generators[s][y][g][t] })
		}
	}
	add := func(name string, a [][][]float64) {
		if a == nil {
			return
		}
		header = append(header, name)
		cols = append(cols, func(y, t int) float64 { return a[s][y][t] })
	}
	add("BatteryIn", d.BatteryIn)
	add("BatteryOut", d.BatteryOut)
	add("SOC", d.SOC)
	add("GridImport", d.GridImport)
	add("GridExport", d.GridExport)
	add("LostLoad", d.LostLoad)
	add("Curtailment", d.Curtailment)

	sh := w.sheet(fmt.Sprintf("Dispatch %d", s+1), header...)
	v := make([]float64, len(cols)+1)
	for y := 0; y < p.Years; y++ {
		for t := 0; t < p.Periods; t++ {
			v[0] = p.Demand[s][y][t]
			for i, c := range cols {
				v[i+1] = c(y, t)
			}
			row(sh, []string{fmt.Sprint(y + 1), fmt.Sprint(t + 1)}, v...)
		}
	}
}
