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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/microgrid"
	"github.com/spf13/cast"
)

// ModelConfig unmarshals the model switches from a viper configuration.
// Unset options keep their DefaultConfig values.
// ParetoSolution is 1-based in the configuration and zero-based in the
// returned value.
func ModelConfig(cfg *viper.Viper) (*microgrid.Config, error) {
	c := microgrid.DefaultConfig()
	var err error
	parse := func(name string, f func(string) error) {
		if err != nil {
			return
		}
		s := os.ExpandEnv(cfg.GetString(name))
		if s == "" {
			return
		}
		if e := f(s); e != nil {
			err = fmt.Errorf("%s: %w", name, e)
		}
	}
	parse("Goal", func(s string) (e error) { c.Goal, e = microgrid.ParseGoal(s); return })
	parse("MultiObjective", func(s string) (e error) { c.MultiObjective, e = microgrid.ParseMultiObjective(s); return })
	parse("Formulation", func(s string) (e error) { c.Formulation, e = microgrid.ParseFormulation(s); return })
	parse("Investment", func(s string) (e error) { c.Investment, e = microgrid.ParseInvestmentType(s); return })
	parse("Components", func(s string) (e error) { c.Components, e = microgrid.ParseComponents(s); return })
	parse("GridConnection", func(s string) (e error) {
		c.GridConnection, e = microgrid.ParseGridConnectionType(s)
		return
	})
	parse("FuelCost", func(s string) (e error) { c.FuelCost, e = microgrid.ParseFuelCostMode(s); return })
	parse("Solver.Kind", func(s string) (e error) { c.Solver.Kind, e = microgrid.ParseSolverKind(s); return })
	parse("Solver.TimeLimit", func(s string) (e error) {
		c.Solver.TimeLimit, e = cast.ToDurationE(s)
		return
	})
	if err != nil {
		return nil, err
	}

	setBool := func(name string, v *bool) {
		if cfg.IsSet(name) {
			*v = cfg.GetBool(name)
		}
	}
	setInt := func(name string, v *int) {
		if cfg.IsSet(name) {
			*v = cfg.GetInt(name)
		}
	}
	setFloat := func(name string, v *float64) {
		if cfg.IsSet(name) {
			*v = cfg.GetFloat64(name)
		}
	}
	setBool("PartialLoad", &c.PartialLoad)
	setBool("Grid", &c.Grid)
	setBool("WACC", &c.WACC)
	setInt("ParetoPoints", &c.ParetoPoints)
	c.ParetoSolution = 1
	setInt("ParetoSolution", &c.ParetoSolution)
	c.ParetoSolution--
	setInt("Workers", &c.Workers)
	setBool("DiagnoseInfeasibility", &c.DiagnoseInfeasibility)
	setFloat("Solver.MIPGap", &c.Solver.MIPGap)
	setInt("Solver.MaxNodes", &c.Solver.MaxNodes)
	setFloat("Solver.Tolerance", &c.Solver.Tolerance)
	setBool("Solver.WarmStart", &c.Solver.WarmStart)
	setInt("Solver.MIPFocus", &c.Solver.MIPFocus)
	setFloat("Solver.BarrierTolerance", &c.Solver.BarrierTolerance)

	if c.MultiObjective == microgrid.SingleObjective {
		// The point selection only applies to a sweep.
		c.ParetoSolution = 0
	} else if c.ParetoSolution < 0 || c.ParetoSolution >= c.ParetoPoints {
		return nil, fmt.Errorf("ParetoSolution: %w: must be in [1, %d], got %d",
			microgrid.ErrConfiguration, c.ParetoPoints, c.ParetoSolution+1)
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return &c, nil
}

// expandPath expands the environment variables in a file path.
func expandPath(p string) string { return os.ExpandEnv(p) }

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="results.xlsx")`)
	}
	f = os.ExpandEnv(f)
	if ext := strings.ToLower(filepath.Ext(f)); ext != ".xlsx" {
		return f, fmt.Errorf("microgrid: the OutputFile must be an .xlsx workbook, got %q", f)
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("microgrid: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("microgrid: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("microgrid: invalid type for %s: %#v", varName, i)
	}
}

// durationString formats d for reports.
func durationString(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
