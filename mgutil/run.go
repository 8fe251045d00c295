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
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/microgrid"
	"github.com/spatialmodel/microgrid/internal/hash"
)

// RunConfig holds the inputs to Run.
type RunConfig struct {
	Config *microgrid.Config

	// InputFile is the path to the TOML model parameter file.
	InputFile string

	// OutputFile is the path to the results workbook. LogFile and
	// MetricsFile are written alongside it; MetricsFile is skipped if empty.
	OutputFile  string
	LogFile     string
	MetricsFile string

	// Report maps report variable names to expressions of the result scalars.
	Report map[string]string

	// Seed seeds the grid outage simulation.
	Seed int64

	// Out receives log messages in addition to LogFile. It defaults to
	// standard output.
	Out io.Writer
}

// Run reads the model parameters, solves the model and writes the results.
// The workbook is written even if the solve fails, so that the status and
// diagnostics are kept with the log.
func Run(ctx context.Context, rc RunConfig) (*microgrid.Results, error) {
	startTime := time.Now()

	logfile, err := os.Create(rc.LogFile)
	if err != nil {
		return nil, fmt.Errorf("microgrid: problem creating log file: %v", err)
	}
	defer logfile.Close()
	out := rc.Out
	if out == nil {
		out = os.Stdout
	}
	log := logrus.New()
	log.Out = io.MultiWriter(out, logfile)
	log.Formatter = &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	log.Level = logrus.GetLevel()

	p, err := ReadParameters(rc.InputFile, rc.Config, rc.Seed)
	if err != nil {
		log.WithError(err).Error("reading model parameters")
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics, err := microgrid.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	d := &microgrid.Driver{Log: log, Metrics: metrics}
	r, solveErr := d.Solve(ctx, rc.Config, p)

	if rc.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(rc.MetricsFile, reg); err != nil {
			return r, fmt.Errorf("microgrid: writing metrics: %v", err)
		}
	}
	if r == nil {
		return nil, solveErr
	}
	if solveErr != nil {
		if diag := r.Diagnostics; diag != nil {
			log.WithFields(logrus.Fields{
				"status":    diag.Status,
				"conflicts": diag.Conflicts,
				"families":  diag.Families,
			}).Error(diag.Message)
		}
		if err := WriteWorkbook(rc.OutputFile, rc.Config, p, r, nil); err != nil {
			log.WithError(err).Error("writing results")
		}
		return r, solveErr
	}

	report, err := EvaluateReport(rc.Report, r.Scalars())
	if err != nil {
		return r, err
	}
	for _, k := range sortedKeys(report) {
		log.WithField("value", report[k]).Info(k)
	}
	if err := WriteWorkbook(rc.OutputFile, rc.Config, p, r, report); err != nil {
		return r, err
	}
	log.WithFields(logrus.Fields{
		"output":  rc.OutputFile,
		"elapsed": durationString(time.Since(startTime)),
	}).Info("microgrid completed successfully")
	return r, nil
}

// setLogLevel sets the level of the standard logger, which Run copies.
func setLogLevel(level string) error {
	if level == "" {
		return nil
	}
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("microgrid: %v", err)
	}
	logrus.SetLevel(l)
	return nil
}

// Summary describes validated model inputs.
type Summary struct {
	Scenarios, Years, Periods, Steps int
	Renewables, Generators           int

	// YearSteps lists the 1-based years of each 1-based investment step.
	YearSteps map[string][]int

	Rate      float64
	InputHash string
}

// Check validates p against cfg and summarises the model it describes.
func Check(cfg *microgrid.Config, p *microgrid.Parameters) (*Summary, error) {
	if err := p.Validate(cfg); err != nil {
		return nil, err
	}
	ix, err := microgrid.NewIndex(cfg, p)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		Scenarios:  ix.Scenarios,
		Years:      ix.Years,
		Periods:    ix.Periods,
		Steps:      ix.Steps,
		Renewables: ix.Renewables,
		Generators: ix.Generators,
		YearSteps:  make(map[string][]int, ix.Steps),
		Rate:       ix.Rate(),
		InputHash:  hash.Hash(cfg, p),
	}
	for _, ys := range ix.YearsSteps() {
		k := fmt.Sprintf("step %d", ys.Step+1)
		s.YearSteps[k] = append(s.YearSteps[k], ys.Year+1)
	}
	return s, nil
}
