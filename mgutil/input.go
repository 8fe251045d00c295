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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/microgrid"
)

// input is the layout of the parameter file. Time series are read from
// CSV files named in it, relative to the parameter file's directory.
type input struct {
	Scenarios           int
	Years               int
	Periods             int
	StepDuration        int
	MinLastStepDuration int
	InvestmentSteps     int

	DiscountRate float64
	WACC         microgrid.WACC

	RenewablePenetration    float64
	LostLoadFraction        float64
	LostLoadSpecificCost    float64
	InvestmentCostLimit     float64
	LargeM                  float64
	LandAvailable           float64
	BatteryIndependenceDays float64

	ScenarioWeights []float64

	// DemandFiles holds one file per scenario with one column per year
	// and one row per period [Wh].
	DemandFiles []string

	// ProductionFiles holds one file per scenario with one column per
	// renewable source and one row per period [Wh per unit].
	ProductionFiles []string

	// GridAvailabilityFiles holds one file per scenario with one column
	// per year and one row per period. If it is empty and the grid is
	// connected, availability is simulated from the outage statistics.
	GridAvailabilityFiles []string

	// FuelCostFile holds one row per year and one column per generator
	// [USD/L]. It is required for imported fuel costs.
	FuelCostFile string

	Renewables []microgrid.Renewable
	Generators []microgrid.Generator
	Battery    *microgrid.Battery
	Grid       *gridInput
}

type gridInput struct {
	Distance            float64
	ConnectionCost      float64
	MaintenanceFraction float64
	PurchasePrice       float64
	SellPrice           float64
	CO2                 float64
	MaxPower            float64

	// ConnectionYear is the 1-based year of connection. Zero means the
	// first year.
	ConnectionYear int

	OutagesPerYear float64
	OutageDuration float64 // [minutes]
}

// ReadParameters reads the model parameters from the TOML file at path
// and the time series it references. Grid availability is simulated
// with the given seed when the grid is connected and no availability
// series is given.
func ReadParameters(path string, cfg *microgrid.Config, seed int64) (*microgrid.Parameters, error) {
	if path == "" {
		return nil, fmt.Errorf("microgrid: you need to specify an InputFile configuration variable")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("microgrid: opening input file: %v", err)
	}
	defer f.Close()
	var in input
	if _, err := toml.DecodeReader(f, &in); err != nil {
		return nil, fmt.Errorf("microgrid: decoding input file %s: %v", path, err)
	}
	dir := filepath.Dir(path)

	p := &microgrid.Parameters{
		Scenarios:               in.Scenarios,
		Years:                   in.Years,
		Periods:                 in.Periods,
		StepDuration:            in.StepDuration,
		MinLastStepDuration:     in.MinLastStepDuration,
		InvestmentSteps:         in.InvestmentSteps,
		DiscountRate:            in.DiscountRate,
		WACC:                    in.WACC,
		RenewablePenetration:    in.RenewablePenetration,
		LostLoadFraction:        in.LostLoadFraction,
		LostLoadSpecificCost:    in.LostLoadSpecificCost,
		InvestmentCostLimit:     in.InvestmentCostLimit,
		LargeM:                  in.LargeM,
		LandAvailable:           in.LandAvailable,
		BatteryIndependenceDays: in.BatteryIndependenceDays,
		ScenarioWeights:         in.ScenarioWeights,
		Renewables:              in.Renewables,
		Generators:              in.Generators,
		Battery:                 in.Battery,
	}
	if p.StepDuration == 0 {
		p.StepDuration = p.Years
	}

	if p.Demand, err = readScenarioSeries(dir, "DemandFiles", in.DemandFiles, p.Scenarios, p.Years, p.Periods); err != nil {
		return nil, err
	}
	if len(p.Renewables) > 0 {
		if p.Production, err = readScenarioSeries(dir, "ProductionFiles", in.ProductionFiles,
			p.Scenarios, len(p.Renewables), p.Periods); err != nil {
			return nil, err
		}
	}
	if in.FuelCostFile != "" {
		cols, err := readColumns(resolve(dir, in.FuelCostFile))
		if err != nil {
			return nil, err
		}
		if len(cols) != len(p.Generators) || (len(cols) > 0 && len(cols[0]) != p.Years) {
			return nil, fmt.Errorf("microgrid: %w: FuelCostFile must have one column per generator (%d) "+
				"and one row per year (%d)", microgrid.ErrShape, len(p.Generators), p.Years)
		}
		p.FuelCost = make([][]float64, p.Years)
		for y := range p.FuelCost {
			p.FuelCost[y] = make([]float64, len(cols))
			for g := range cols {
				p.FuelCost[y][g] = cols[g][y]
			}
		}
	}

	if g := in.Grid; g != nil {
		p.Grid = &microgrid.Grid{
			Distance:            g.Distance,
			ConnectionCost:      g.ConnectionCost,
			MaintenanceFraction: g.MaintenanceFraction,
			PurchasePrice:       g.PurchasePrice,
			SellPrice:           g.SellPrice,
			CO2:                 g.CO2,
			MaxPower:            g.MaxPower,
		}
		if g.ConnectionYear > 0 {
			p.Grid.ConnectionYear = g.ConnectionYear - 1
		}
		if cfg.Grid {
			if len(in.GridAvailabilityFiles) > 0 {
				p.GridAvailability, err = readScenarioSeries(dir, "GridAvailabilityFiles", in.GridAvailabilityFiles,
					p.Scenarios, p.Years, p.Periods)
				if err != nil {
					return nil, err
				}
			} else {
				p.GridAvailability = SimulateAvailability(p.Scenarios, p.Years, p.Periods,
					g.OutagesPerYear, g.OutageDuration, seed)
			}
		}
	}
	return p, nil
}

// resolve returns file relative to dir unless it is absolute.
func resolve(dir, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// readScenarioSeries reads one file per scenario, each with d1 columns
// of d2 rows, into a [scenario][column][row] array.
func readScenarioSeries(dir, name string, files []string, scenarios, d1, d2 int) ([][][]float64, error) {
	if len(files) != scenarios {
		return nil, fmt.Errorf("microgrid: %w: %s has %d files, want one per scenario (%d)",
			microgrid.ErrShape, name, len(files), scenarios)
	}
	o := make([][][]float64, scenarios)
	for s, file := range files {
		cols, err := readColumns(resolve(dir, file))
		if err != nil {
			return nil, err
		}
		if len(cols) != d1 {
			return nil, fmt.Errorf("microgrid: %w: %s has %d columns, want %d", microgrid.ErrShape, file, len(cols), d1)
		}
		for i, c := range cols {
			if len(c) != d2 {
				return nil, fmt.Errorf("microgrid: %w: column %d of %s has %d rows, want %d",
					microgrid.ErrShape, i+1, file, len(c), d2)
			}
		}
		o[s] = cols
	}
	return o, nil
}

// readColumns reads a CSV file with a header row and numeric fields and
// returns its columns.
func readColumns(file string) ([][]float64, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("microgrid: opening time series: %v", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("microgrid: reading header of %s: %v", file, err)
	}
	cols := make([][]float64, len(header))
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("microgrid: reading %s: %v", file, err)
		}
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("microgrid: %s line %d column %d: %v", file, line, i+1, err)
			}
			cols[i] = append(cols[i], v)
		}
	}
	return cols, nil
}
