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
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/spatialmodel/microgrid"
	"github.com/spatialmodel/microgrid/milp"
	"github.com/tealeg/xlsx"
)

func TestEvaluateReport(t *testing.T) {
	scalars := map[string]float64{"NPC": 1000, "EnergyServed": 400, "CO2": -3}
	have, err := EvaluateReport(map[string]string{
		"PerUnit": "NPC / EnergyServed",
		"Abs":     "abs(CO2) * 2",
		"Cap":     "min(NPC, 10) + max(CO2, 0)",
	}, scalars)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{"PerUnit": 2.5, "Abs": 6, "Cap": 10}
	for k, v := range want {
		if have[k] != v {
			t.Errorf("%s: have %g, want %g", k, have[k], v)
		}
	}

	if _, err := EvaluateReport(map[string]string{"x": "Missing * 2"}, scalars); err == nil {
		t.Error("expected an error for an undefined variable")
	}
	if _, err := EvaluateReport(map[string]string{"x": "NPC > 2"}, scalars); err == nil {
		t.Error("expected an error for a non-numeric result")
	}
}

func TestWriteWorkbook(t *testing.T) {
	cfg := microgrid.DefaultConfig()
	p, err := ReadParameters("testdata/params.toml", &cfg, 1)
	if err != nil {
		t.Fatal(err)
	}
	d := &microgrid.Driver{}
	r, err := d.Solve(context.Background(), &cfg, p)
	if err != nil {
		t.Fatal(err)
	}
	report, err := EvaluateReport(map[string]string{"Half": "NPC / 2"}, r.Scalars())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "results.xlsx")
	if err := WriteWorkbook(path, &cfg, p, r, report); err != nil {
		t.Fatal(err)
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Summary", "Capacity", "Scenarios", "Dispatch 1"} {
		if _, ok := f.Sheet[name]; !ok {
			t.Errorf("missing sheet %s", name)
		}
	}
	if _, ok := f.Sheet["Pareto"]; ok {
		t.Error("single-objective results should not have a Pareto sheet")
	}
	summary := map[string]string{}
	for _, row := range f.Sheet["Summary"].Rows {
		if len(row.Cells) >= 2 {
			summary[row.Cells[0].Value] = row.Cells[1].Value
		}
	}
	if summary["Status"] != r.Status.String() {
		t.Errorf("status: %q", summary["Status"])
	}
	if summary["RunID"] != r.RunID || summary["InputHash"] != r.InputHash {
		t.Errorf("run identity: %v", summary)
	}
	if _, ok := summary["Half"]; !ok {
		t.Error("missing report variable")
	}
	dispatch := f.Sheet["Dispatch 1"]
	if len(dispatch.Rows) != p.Years*p.Periods+1 {
		t.Errorf("dispatch rows: %d", len(dispatch.Rows))
	}
	if have := dispatch.Rows[0].Cells[3].Value; have != "pv" {
		t.Errorf("first renewable column: %q", have)
	}
}

// infSolver claims optimality with an infinite objective.
type infSolver struct{}

func (infSolver) Solve(_ context.Context, p *milp.Problem, _ milp.Options) (*milp.Solution, error) {
	return &milp.Solution{Status: milp.Optimal, Objective: math.Inf(-1), X: make([]float64, p.NumVars())}, nil
}

func TestWriteWorkbookNumerical(t *testing.T) {
	cfg := microgrid.DefaultConfig()
	p, err := ReadParameters("testdata/params.toml", &cfg, 1)
	if err != nil {
		t.Fatal(err)
	}
	d := &microgrid.Driver{Solver: infSolver{}}
	r, err := d.Solve(context.Background(), &cfg, p)
	if !errors.Is(err, microgrid.ErrNumerical) {
		t.Fatalf("have error %v", err)
	}
	if r.Status != milp.Numerical || r.Diagnostics.Status != milp.Numerical {
		t.Fatalf("have status %s and %s", r.Status, r.Diagnostics.Status)
	}
	path := filepath.Join(t.TempDir(), "results.xlsx")
	if err := WriteWorkbook(path, &cfg, p, r, nil); err != nil {
		t.Fatal(err)
	}
	f, err := xlsx.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.Sheet["Dispatch 1"]; ok {
		t.Error("failed solves have no dispatch")
	}
	for _, row := range f.Sheet["Summary"].Rows {
		if len(row.Cells) >= 2 && row.Cells[0].Value == "Status" && row.Cells[1].Value != "numerical" {
			t.Errorf("status: %q", row.Cells[1].Value)
		}
	}
}

// A workbook written from results without dispatch arrays has no
// dispatch sheets.
func TestWriteWorkbookEmptyDispatch(t *testing.T) {
	cfg := microgrid.DefaultConfig()
	p, err := ReadParameters("testdata/params.toml", &cfg, 1)
	if err != nil {
		t.Fatal(err)
	}
	r := &microgrid.Results{Status: milp.Optimal}
	path := filepath.Join(t.TempDir(), "results.xlsx")
	if err := WriteWorkbook(path, &cfg, p, r, nil); err != nil {
		t.Fatal(err)
	}
}
