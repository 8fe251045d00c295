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
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kr/pretty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/microgrid/milp"
)

const testTolerance = 1e-6

func solve(t *testing.T, cfg *Config, p *Parameters) *Results {
	t.Helper()
	d := &Driver{Log: logrus.StandardLogger()}
	r, err := d.Solve(context.Background(), cfg, p)
	if err != nil {
		t.Fatal(err)
	}
	if v := r.Verify(cfg, p, testTolerance); len(v) > 0 {
		t.Errorf("solution violates the model:\n%s", pretty.Sprint(v))
	}
	return r
}

// A constant renewable supply meets a constant demand without storage.
func TestConstantSupply(t *testing.T) {
	cfg := batteryOnly()
	p := offGrid(1, 24)
	r := solve(t, cfg, p)
	if r.Status != milp.Optimal {
		t.Fatalf("status %s", r.Status)
	}
	if units := r.Capacity[0].RESUnits[0]; units < 1-testTolerance {
		t.Errorf("RES units %g < 1", units)
	}
	if r.Capacity[0].Battery > testTolerance {
		t.Errorf("unnecessary battery of %g Wh", r.Capacity[0].Battery)
	}
	s := r.Scalars()
	if s["LostLoad"] > testTolerance || s["Curtailment"] > testTolerance {
		t.Errorf("lost load %g and curtailment %g", s["LostLoad"], s["Curtailment"])
	}
	if r.RunID == "" || r.InputHash == "" {
		t.Error("missing run identification")
	}
	if r.LCOE <= 0 {
		t.Errorf("LCOE %g", r.LCOE)
	}
	if len(r.Solution()) != len(r.x) {
		t.Error("solution map is incomplete")
	}
}

// Half a day without production needs storage.
func TestDailyStorage(t *testing.T) {
	cfg := batteryOnly()
	p := offGrid(1, 24)
	for h := 12; h < 24; h++ {
		p.Production[0][0][h] = 0
	}
	r := solve(t, cfg, p)
	b := p.Battery
	need := 12000 / (b.DischargeEfficiency * b.DepthOfDischarge)
	if c := r.Capacity[0].Battery; c < need*(1-testTolerance) {
		t.Errorf("battery capacity %g Wh, want at least %g Wh", c, need)
	}
	var res, demand float64
	for h := 0; h < 24; h++ {
		res += r.Dispatch.RES[0][0][0][h]
		demand += p.Demand[0][0][h]
	}
	if res < demand {
		t.Errorf("renewable production %g Wh is less than demand %g Wh", res, demand)
	}
	for h := 12; h < 24; h++ {
		if r.Dispatch.BatteryOut[0][0][h] <= 0 {
			t.Errorf("battery idle at night, hour %d", h)
		}
	}
	if sc := r.Scenarios[0]; sc.Replacement <= 0 {
		t.Errorf("battery throughput should cost, have %g", sc.Replacement)
	}
}

// A week of nights without production is bridged by storage every day.
func TestWeeklyStorage(t *testing.T) {
	const days = 7
	cfg := batteryOnly()
	p := offGrid(1, 24*days)
	for day := 0; day < days; day++ {
		for h := 12; h < 24; h++ {
			p.Production[0][0][24*day+h] = 0
		}
	}
	r := solve(t, cfg, p)
	if r.Status != milp.Optimal {
		t.Fatalf("status %s", r.Status)
	}
	b := p.Battery
	need := 12000 / (b.DischargeEfficiency * b.DepthOfDischarge)
	if c := r.Capacity[0].Battery; c < need*(1-testTolerance) {
		t.Errorf("battery capacity %g Wh, want at least %g Wh", c, need)
	}
	if lost := r.Scalars()["LostLoad"]; lost > testTolerance {
		t.Errorf("lost load %g Wh", lost)
	}
	for day := 0; day < days; day++ {
		if out := r.Dispatch.BatteryOut[0][0][24*day+23]; out <= 0 {
			t.Errorf("day %d: battery idle at midnight", day)
		}
	}
}

func TestBrownfield(t *testing.T) {
	cfg := batteryOnly()
	cfg.Investment = Brownfield
	p := offGrid(2, 4)
	p.Renewables[0].Lifetime = 20
	p.Renewables[0].ExistingCapacity = 50000
	p.Renewables[0].ExistingAge = 10
	r := solve(t, cfg, p)
	if c := r.Capacity[0].RES[0]; c < 50000*(1-testTolerance) {
		t.Errorf("RES capacity %g W below the existing capacity", c)
	}
	// Nothing new is needed, so nothing is invested.
	if different(r.InvestmentCost, 0, testTolerance) {
		t.Errorf("investment %g", r.InvestmentCost)
	}
	want := 50000 * (20. - 10 - 2) / 20 * discount(0.05, 2)
	if different(r.Salvage, want, testTolerance) {
		t.Errorf("salvage %g, want %g", r.Salvage, want)
	}
}

func TestUnitCommitment(t *testing.T) {
	cfg, p := generatorOnly(1, 4)
	cfg.Formulation = MILP
	cfg.PartialLoad = true
	p.Demand = fill(1, 1, 4, 40000)
	r := solve(t, cfg, p)
	if units := r.Capacity[0].GeneratorUnits[0]; different(units, 1, testTolerance) {
		t.Errorf("%g generator units, want 1", units)
	}
	d := r.Dispatch
	for h := 0; h < 4; h++ {
		full, part, e := d.GenFull[0][0][0][h], d.GenPartial[0][0][0][h], d.GenEnergyPartial[0][0][0][h]
		if different(full, 0, testTolerance) || different(part, 1, testTolerance) {
			t.Errorf("hour %d: %g full and %g partial units", h, full, part)
		}
		if different(e, 40000, testTolerance) {
			t.Errorf("hour %d: partial output %g Wh", h, e)
		}
	}
	// The partial-load curve makes 40 kW cheaper than the full-load rate.
	if full := 4 * 40000 * p.MarginalCost(cfg, 0, 0); r.Scenarios[0].Fuel >= full {
		t.Errorf("fuel cost %g should be below the full-load cost %g", r.Scenarios[0].Fuel, full)
	}
}

func TestGeneratorCapacity(t *testing.T) {
	cfg, p := generatorOnly(2, 4)
	r := solve(t, cfg, p)
	for st, c := range r.Capacity {
		if c.Generators[0] < 100000*(1-testTolerance) {
			t.Errorf("step %d: generator capacity %g W", st, c.Generators[0])
		}
	}
	want := 100 * 4 * 0.3 * (discount(0.05, 1) + discount(0.05, 2))
	if different(r.Scenarios[0].Fuel, want, testTolerance) {
		t.Errorf("fuel cost %g, want %g", r.Scenarios[0].Fuel, want)
	}
}

func TestGridPurchaseOnly(t *testing.T) {
	cfg := batteryOnly()
	cfg.Grid = true
	cfg.GridConnection = PurchaseOnly
	p := offGrid(1, 4)
	p.Grid = &Grid{PurchasePrice: 0.05, SellPrice: 0.5, MaxPower: 5000, CO2: 0.5}
	p.GridAvailability = fill(1, 1, 4, 1)
	r := solve(t, cfg, p)
	for h := 0; h < 4; h++ {
		if r.Dispatch.GridExport[0][0][h] > testTolerance {
			t.Errorf("hour %d: export %g", h, r.Dispatch.GridExport[0][0][h])
		}
	}
	// Grid energy is cheaper than a PV unit for four hours.
	if imp := r.Dispatch.GridImport[0][0][0]; different(imp, 1000, testTolerance) {
		t.Errorf("import %g Wh", imp)
	}
	if r.CO2 <= 0 {
		t.Errorf("grid purchases should emit, have %g", r.CO2)
	}
}

func TestInfeasible(t *testing.T) {
	cfg := batteryOnly()
	cfg.DiagnoseInfeasibility = true
	p := offGrid(1, 4)
	p.Renewables[0].SpecificArea = 1
	p.LandAvailable = 1
	p.Battery.InitialSOC = 1 - p.Battery.DepthOfDischarge

	d := &Driver{}
	r, err := d.Solve(context.Background(), cfg, p)
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("have error %v", err)
	}
	var serr *SolverError
	if !errors.As(err, &serr) || serr.Status != milp.Infeasible {
		t.Fatalf("have error %#v", err)
	}
	if r == nil || r.Diagnostics == nil {
		t.Fatal("missing diagnostics")
	}
	if r.Solution() != nil {
		t.Error("failed solves have no solution")
	}
	for _, f := range []string{"energy_balance", "land_use", "lost_load_cap"} {
		var found bool
		for _, ff := range r.Diagnostics.Families {
			if ff == f {
				found = true
			}
		}
		if !found {
			t.Errorf("family %s not implicated in %v", f, r.Diagnostics.Families)
		}
	}
}

func TestPareto(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MultiObjective = NPCvsCO2
	cfg.ParetoPoints = 3
	cfg.ParetoSolution = 1
	cfg.Workers = 2
	p := offGrid(1, 4)
	p.Production[0][0][2] = 0
	p.Production[0][0][3] = 0
	p.Generators = []Generator{testDiesel()}
	p.Generators[0].CO2 = 0
	p.Renewables[0].CO2 = 0
	p.Battery.CO2 = 0

	r := solve(t, &cfg, p)
	if len(r.Pareto) != 3 {
		t.Fatalf("%d points", len(r.Pareto))
	}
	for i, pt := range r.Pareto {
		if !pt.Status.HasSolution() {
			t.Errorf("point %d: status %s", i, pt.Status)
		}
		if i == 0 {
			continue
		}
		prev := r.Pareto[i-1]
		if pt.CO2 > prev.CO2+testTolerance {
			t.Errorf("point %d: emissions increase from %g to %g", i, prev.CO2, pt.CO2)
		}
		if pt.Economic < prev.Economic-testTolerance {
			t.Errorf("point %d: cost decreases from %g to %g", i, prev.Economic, pt.Economic)
		}
		// The LP fixes the emissions of each point.
		if different(pt.CO2, pt.Epsilon, testTolerance) {
			t.Errorf("point %d: emissions %g, want %g", i, pt.CO2, pt.Epsilon)
		}
	}
	if different(r.CO2, r.Pareto[1].CO2, testTolerance) {
		t.Errorf("returned point has emissions %g, want %g", r.CO2, r.Pareto[1].CO2)
	}
}

func TestEpsilons(t *testing.T) {
	e := epsilons(10, 4, 4)
	want := []float64{10, 8, 6, 4}
	for i := range want {
		if different(e[i], want[i], 1e-12) {
			t.Errorf("%d: %g != %g", i, e[i], want[i])
		}
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	again, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	if again.Solves != m.Solves {
		t.Error("collectors should be shared between registrations")
	}

	d := &Driver{Metrics: m}
	if _, err := d.Solve(context.Background(), batteryOnly(), offGrid(1, 4)); err != nil {
		t.Fatal(err)
	}
	if n := testutil.ToFloat64(m.Solves.WithLabelValues("npc", "optimal")); n != 1 {
		t.Errorf("%g optimal solves recorded", n)
	}
	if n := testutil.ToFloat64(m.Variables); n <= 0 {
		t.Errorf("%g variables recorded", n)
	}
}

func TestVerify(t *testing.T) {
	cfg := batteryOnly()
	p := offGrid(1, 4)
	r := solve(t, cfg, p)
	r.NPC *= 2
	r.Dispatch.LostLoad[0][0][1] += 500
	v := r.Verify(cfg, p, testTolerance)
	fams := make(map[string]bool)
	for _, vv := range v {
		fams[vv.Family] = true
	}
	for _, f := range []string{"npc", "energy_balance", "lost_load_cap"} {
		if !fams[f] {
			t.Errorf("missing violation of %s in %v", f, v)
		}
	}
}

// nanSolver reports an optimal solution with an undefined objective.
type nanSolver struct{}

func (nanSolver) Solve(_ context.Context, p *milp.Problem, _ milp.Options) (*milp.Solution, error) {
	return &milp.Solution{Status: milp.Optimal, Objective: math.NaN(), X: make([]float64, p.NumVars())}, nil
}

func TestNonFiniteObjective(t *testing.T) {
	d := &Driver{Solver: nanSolver{}}
	r, err := d.Solve(context.Background(), batteryOnly(), offGrid(1, 4))
	if !errors.Is(err, ErrNumerical) {
		t.Fatalf("have error %v", err)
	}
	var serr *SolverError
	if !errors.As(err, &serr) || serr.Status != milp.Numerical {
		t.Errorf("have error %#v", err)
	}
	if r == nil || r.Status != milp.Numerical || r.Diagnostics == nil || r.Diagnostics.Status != milp.Numerical {
		t.Fatalf("have results %+v", r)
	}
	if r.Status.HasSolution() || r.Solution() != nil {
		t.Error("a non-finite objective is not a solution")
	}
}

func TestStatusError(t *testing.T) {
	for _, tc := range []struct {
		status milp.Status
		kind   error
	}{
		{milp.Infeasible, ErrInfeasible},
		{milp.Unbounded, ErrInfeasible},
		{milp.TimeLimit, ErrSolverTimeout},
		{milp.Numerical, ErrNumerical},
	} {
		err := statusError(&milp.Solution{Status: tc.status}, nil)
		if !errors.Is(err, tc.kind) {
			t.Errorf("%s: have %v, want %v", tc.status, err, tc.kind)
		}
	}
	if err := statusError(nil, errors.New("backend")); !errors.Is(err, ErrNumerical) {
		t.Errorf("missing solution: have %v", err)
	}
}
