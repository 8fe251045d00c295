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
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kr/pretty"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/microgrid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	solveFlags := []*pflag.FlagSet{checkCmd.Flags(), runCmd.Flags()}
	// Options are the configuration options available to microgrid.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputFile",
			usage: `
              InputFile is the path to the TOML file holding the model
              parameters. Time series referenced from it are read relative
              to its directory. It can include environment variables.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   solveFlags,
		},
		{
			name: "Goal",
			usage: `
              Goal is the economic objective: npc or variable_cost.`,
			defaultVal: "npc",
			flagsets:   solveFlags,
		},
		{
			name: "MultiObjective",
			usage: `
              MultiObjective selects an ε-constraint sweep of the economic
              objective against CO2 emissions: off, npc_vs_co2 or
              varcost_vs_co2. The sweep mode must match Goal.`,
			defaultVal: "off",
			flagsets:   solveFlags,
		},
		{
			name: "ParetoPoints",
			usage: `
              ParetoPoints is the number of points in a multi-objective
              sweep.`,
			defaultVal: 3,
			flagsets:   solveFlags,
		},
		{
			name: "ParetoSolution",
			usage: `
              ParetoSolution is the 1-based index of the sweep point whose
              solution is reported. Point 1 is the economic optimum.`,
			defaultVal: 1,
			flagsets:   solveFlags,
		},
		{
			name: "Formulation",
			usage: `
              Formulation is lp or milp. The MILP formulation sizes
              components in whole units.`,
			defaultVal: "lp",
			flagsets:   solveFlags,
		},
		{
			name: "PartialLoad",
			usage: `
              PartialLoad enables generator unit commitment with a
              partial-load fuel curve. It requires the MILP formulation.`,
			defaultVal: false,
			flagsets:   solveFlags,
		},
		{
			name: "Investment",
			usage: `
              Investment is greenfield or brownfield. Existing capacities
              are only allowed for brownfield investments.`,
			defaultVal: "greenfield",
			flagsets:   solveFlags,
		},
		{
			name: "Components",
			usage: `
              Components is full, battery_only or generator_only.`,
			defaultVal: "full",
			flagsets:   solveFlags,
		},
		{
			name: "Grid",
			usage: `
              Grid specifies whether the microgrid is connected to the
              national grid.`,
			defaultVal: false,
			flagsets:   solveFlags,
		},
		{
			name: "GridConnection",
			usage: `
              GridConnection is purchase_only or purchase_sell.`,
			defaultVal: "purchase_only",
			flagsets:   solveFlags,
		},
		{
			name: "FuelCost",
			usage: `
              FuelCost is the fuel price model: constant, linear_trend or
              imported_series.`,
			defaultVal: "constant",
			flagsets:   solveFlags,
		},
		{
			name: "WACC",
			usage: `
              WACC specifies whether costs are discounted with the
              weighted average cost of capital instead of the discount
              rate.`,
			defaultVal: false,
			flagsets:   solveFlags,
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of concurrent solves in a
              multi-objective sweep. 0 means one per CPU.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "DiagnoseInfeasibility",
			usage: `
              DiagnoseInfeasibility runs a deletion filter over the
              constraint families of an infeasible model to find the
              families in conflict.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Solver.Kind",
			usage: `
              Solver.Kind is the optimisation backend: "simplex" (dense, for
              horizons up to a few weeks) or "highs" (sparse, for full years;
              requires a binary built with the highs build tag).`,
			defaultVal: "simplex",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Solver.MIPGap",
			usage: `
              Solver.MIPGap is the relative optimality gap at which
              branch and bound stops.`,
			defaultVal: 1e-4,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Solver.TimeLimit",
			usage: `
              Solver.TimeLimit bounds the time spent in each solve, for
              example "10m". Empty means no limit.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Solver.MaxNodes",
			usage: `
              Solver.MaxNodes bounds the number of branch-and-bound nodes.
              0 means no limit.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Solver.Tolerance",
			usage: `
              Solver.Tolerance is the feasibility tolerance.`,
			defaultVal: 1e-9,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Solver.WarmStart",
			usage: `
              Solver.WarmStart passes the emission optimum to the solves
              of a multi-objective sweep as a starting incumbent.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Solver.MIPFocus",
			usage: `
              Solver.MIPFocus is passed to backends that support it.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Solver.BarrierTolerance",
			usage: `
              Solver.BarrierTolerance is passed to backends that support it.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path of the results workbook (.xlsx). It
              can include environment variables.`,
			shorthand:  "o",
			defaultVal: "microgrid_results.xlsx",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left empty, the
              log file will be saved in the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is one of debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "MetricsFile",
			usage: `
              MetricsFile, if set, is where solve metrics are written in the
              Prometheus text format.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ReportVariables",
			usage: `
              ReportVariables maps names of additional report values to
              expressions over the result scalars, for example
              {"LCOE_kWh":"LCOE * 1000"}. Available scalars are NPC,
              InvestmentCost, OMAct, OMNonAct, Salvage, VariableCost, CO2,
              LCAEmissions, LCOE, Objective, LostLoad, Curtailment,
              EnergyServed, BatteryCapacity, RESCapacity and
              GeneratorCapacity.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed",
			usage: `
              Seed seeds the simulation of grid outages used when no grid
              availability series is given.`,
			defaultVal: 1,
			flagsets:   solveFlags,
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("MICROGRID")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				set.Bool(option.name, option.defaultVal.(bool), option.usage)
			case int:
				set.Int(option.name, option.defaultVal.(int), option.usage)
			case float64:
				set.Float64(option.name, option.defaultVal.(float64), option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				set.String(option.name, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(checkCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("microgrid: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "microgrid",
	Short: "Sizing and dispatch optimisation for microgrids.",
	Long: `microgrid finds the least-cost mix of renewable sources, battery storage,
fuel generators and grid connection that meets the demand of a microgrid over
a multi-year horizon, together with its hourly operation.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'MICROGRID_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if err := setConfig(); err != nil {
			return err
		}
		return setLogLevel(Cfg.GetString("LogLevel"))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of microgrid.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("microgrid v%s\n", microgrid.Version)
	},
	DisableAutoGenTag: true,
}

// checkCmd validates the inputs without solving.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the model inputs.",
	Long: `check reads and validates the configuration and model parameters and
prints the investment steps and the fingerprint of the parameters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ModelConfig(Cfg)
		if err != nil {
			return err
		}
		p, err := ReadParameters(expandPath(Cfg.GetString("InputFile")), cfg, int64(Cfg.GetInt("Seed")))
		if err != nil {
			return err
		}
		summary, err := Check(cfg, p)
		if err != nil {
			return err
		}
		cmd.Println(pretty.Sprint(summary))
		return nil
	},
	DisableAutoGenTag: true,
}

// runCmd builds and solves the model.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the optimisation.",
	Long: `run sizes and dispatches the microgrid described by the configuration
and writes the results workbook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ModelConfig(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		report, err := GetStringMapString("ReportVariables", Cfg)
		if err != nil {
			return err
		}
		ctx := context.Background()
		if d := cfg.Solver.TimeLimit; d > 0 && cfg.MultiObjective != microgrid.SingleObjective {
			// Each sweep point gets the full limit; bound the sweep as a whole.
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.ParetoPoints+1)*d)
			defer cancel()
		}
		_, err = Run(ctx, RunConfig{
			Config:      cfg,
			InputFile:   expandPath(Cfg.GetString("InputFile")),
			OutputFile:  outputFile,
			LogFile:     checkLogFile(Cfg.GetString("LogFile"), outputFile),
			MetricsFile: expandPath(Cfg.GetString("MetricsFile")),
			Report:      report,
			Seed:        int64(Cfg.GetInt("Seed")),
			Out:         cmd.OutOrStdout(),
		})
		return err
	},
	DisableAutoGenTag: true,
}
