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
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/microgrid"
)

func TestModelConfig(t *testing.T) {
	v := viper.New()
	v.Set("Goal", "variable_cost")
	v.Set("MultiObjective", "varcost_vs_co2")
	v.Set("Formulation", "milp")
	v.Set("PartialLoad", true)
	v.Set("Components", "generator_only")
	v.Set("FuelCost", "linear_trend")
	v.Set("ParetoPoints", 4)
	v.Set("ParetoSolution", 2)
	v.Set("Solver.Kind", "simplex")
	v.Set("Solver.TimeLimit", "90s")
	v.Set("Solver.MIPGap", 0.01)

	cfg, err := ModelConfig(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Goal != microgrid.VariableCost {
		t.Errorf("goal: %v", cfg.Goal)
	}
	if cfg.MultiObjective != microgrid.VariableCostvsCO2 {
		t.Errorf("multi-objective: %v", cfg.MultiObjective)
	}
	if cfg.Formulation != microgrid.MILP || !cfg.PartialLoad {
		t.Errorf("formulation: %v, partial load %v", cfg.Formulation, cfg.PartialLoad)
	}
	if cfg.Components != microgrid.GeneratorOnly {
		t.Errorf("components: %v", cfg.Components)
	}
	if cfg.FuelCost != microgrid.LinearFuelCost {
		t.Errorf("fuel cost: %v", cfg.FuelCost)
	}
	if cfg.ParetoSolution != 1 {
		t.Errorf("ParetoSolution should be zero-based: %d", cfg.ParetoSolution)
	}
	if cfg.Solver.TimeLimit != 90*time.Second {
		t.Errorf("time limit: %v", cfg.Solver.TimeLimit)
	}
	if cfg.Solver.MIPGap != 0.01 {
		t.Errorf("MIP gap: %g", cfg.Solver.MIPGap)
	}
}

func TestModelConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]interface{}
	}{
		{name: "goal", set: map[string]interface{}{"Goal": "cheapest"}},
		{name: "mismatched sweep", set: map[string]interface{}{"MultiObjective": "varcost_vs_co2"}},
		{name: "pareto solution", set: map[string]interface{}{
			"MultiObjective": "npc_vs_co2", "ParetoPoints": 3, "ParetoSolution": 4}},
		{name: "partial load lp", set: map[string]interface{}{"PartialLoad": true}},
		{name: "time limit", set: map[string]interface{}{"Solver.TimeLimit": "soon"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := viper.New()
			v.Set("Goal", "npc")
			v.Set("MultiObjective", "off")
			v.Set("Formulation", "lp")
			v.Set("ParetoSolution", 1)
			for k, val := range test.set {
				v.Set(k, val)
			}
			if _, err := ModelConfig(v); err == nil {
				t.Error("expected an error")
			}
		})
	}
	t.Run("kind", func(t *testing.T) {
		v := viper.New()
		v.Set("MultiObjective", "npc_vs_co2")
		v.Set("ParetoPoints", 2)
		v.Set("ParetoSolution", 0)
		_, err := ModelConfig(v)
		if !errors.Is(err, microgrid.ErrConfiguration) {
			t.Errorf("have %v, want a configuration error", err)
		}
	})
}

func TestGetStringMapString(t *testing.T) {
	v := viper.New()
	want := map[string]string{"a": "NPC / 2", "b": "CO2"}

	v.Set("json", `{"a": "NPC / 2", "b": "CO2"}`)
	v.Set("map", map[string]interface{}{"a": "NPC / 2", "b": "CO2"})
	v.Set("empty", "")
	for _, name := range []string{"json", "map"} {
		have, err := GetStringMapString(name, v)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(have, want) {
			t.Errorf("%s: have %v, want %v", name, have, want)
		}
	}
	for _, name := range []string{"empty", "unset"} {
		have, err := GetStringMapString(name, v)
		if err != nil {
			t.Fatal(err)
		}
		if len(have) != 0 {
			t.Errorf("%s: have %v, want empty map", name, have)
		}
	}
	v.Set("bad", 7)
	if _, err := GetStringMapString("bad", v); err == nil {
		t.Error("expected an error for a non-map value")
	}
}

func TestCheckOutputFile(t *testing.T) {
	if _, err := checkOutputFile(""); err == nil {
		t.Error("empty output file should fail")
	}
	if _, err := checkOutputFile("testdata/results.csv"); err == nil {
		t.Error("non-xlsx output file should fail")
	}
	if _, err := checkOutputFile("nodir/results.xlsx"); err == nil {
		t.Error("missing output directory should fail")
	}
	if f, err := checkOutputFile("testdata/results.xlsx"); err != nil || f != "testdata/results.xlsx" {
		t.Errorf("%q, %v", f, err)
	}
	if have := checkLogFile("", "testdata/results.xlsx"); have != "testdata/results.log" {
		t.Errorf("log file: %s", have)
	}
}
