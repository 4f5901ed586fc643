package scenario

import (
	"context"
	"io"
	"time"

	"github.com/cloud-bulldozer/graph-crudperf/pkg/archive"
	"github.com/cloud-bulldozer/graph-crudperf/pkg/drivers"
	"github.com/cloud-bulldozer/graph-crudperf/pkg/logging"
	result "github.com/cloud-bulldozer/graph-crudperf/pkg/results"
	"github.com/cloud-bulldozer/graph-crudperf/pkg/sample"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrInvalidSamples rejects a negative sample count.
var ErrInvalidSamples = errors.New("number of samples must not be negative")

// Recorder persists the series of a completed phase and returns where.
type Recorder func(dir, name, phaseSpec string, series sample.Series, now time.Time) (string, error)

// Runner executes scenarios against one driver, one operation at a time.
type Runner struct {
	Driver    drivers.Driver
	OutputDir string
	// Progress receives setup progress bars, nil disables them.
	Progress io.Writer
	// Now stamps artifacts, defaults to time.Now.
	Now func() time.Time
	// Record defaults to archive.WriteLatencies.
	Record Recorder
}

// Planned is a scenario with its sample count.
type Planned struct {
	Scenario Scenario
	Samples  int
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) record() Recorder {
	if r.Record != nil {
		return r.Record
	}
	return archive.WriteLatencies
}

func (r *Runner) env() Env {
	return Env{Driver: r.Driver, Progress: r.Progress}
}

// Run takes sc through setup, its timed phases and teardown. Teardown, the
// scenario's Cleanup followed by ClearAll, runs exactly once whatever
// happened before, and its failures are only logged.
//
// A failing operation ends the phase and the scenario. Its partial series,
// including the failed call, is returned marked aborted but not persisted.
// Artifact write failures do not stop the scenario, they are returned once
// every phase has run.
func (r *Runner) Run(ctx context.Context, sc Scenario, n int) (res result.ScenarioResult, err error) {
	res.Scenario = sc.Name
	if n < 0 {
		return res, errors.Wrapf(ErrInvalidSamples, "scenario %s: %d", sc.Name, n)
	}
	log := logging.Scenario(sc.Name, "")
	log.Infof("🏃 Running %s... %s", sc.Name, sc.Description)
	log.Infof("numSamples: %d", n)

	st := &State{Samples: n}
	env := r.env()
	defer r.teardown(sc, env, st)

	if sc.Setup != nil {
		if err := sc.Setup(ctx, env, st); err != nil {
			return res, &PhaseError{Scenario: sc.Name, Phase: "setup", Index: -1, Err: err}
		}
	}
	if sc.Prepare != nil {
		if err := sc.Prepare(ctx, env, st); err != nil {
			return res, &PhaseError{Scenario: sc.Name, Phase: "prepare", Index: -1, Err: err}
		}
	}

	var artifacts *multierror.Error
	for _, p := range sc.Phases {
		data, perr := r.runPhase(ctx, sc, p, st)
		plog := logging.Scenario(sc.Name, p.Name)
		plog.Info(data.Summary.String())
		if perr != nil {
			data.Aborted = true
			res.Phases = append(res.Phases, data)
			plog.Errorf("😥 %v", perr)
			return res, perr
		}
		path, werr := r.record()(r.OutputDir, p.Name, archive.PhaseSpec(n), data.Series, r.now())
		if werr != nil {
			plog.Errorf("😥 %v", werr)
			artifacts = multierror.Append(artifacts, errors.Wrapf(werr, "scenario %s, phase %s", sc.Name, p.Name))
		} else {
			data.Artifact = path
			plog.Debugf("Wrote %s", path)
		}
		res.Phases = append(res.Phases, data)
	}
	log.Infof("✅ Completed phases: %s", result.Phases(res))
	return res, artifacts.ErrorOrNil()
}

// runPhase issues st.Samples operations in index order, timing each one.
func (r *Runner) runPhase(ctx context.Context, sc Scenario, p Phase, st *State) (result.Data, error) {
	series := make(sample.Series, 0, st.Samples)
	start := time.Now()
	var failure error
	for i := 0; i < st.Samples; i++ {
		call := p.Op(ctx, r.Driver, st, i)
		ms, err := sample.Measure(call)
		series = append(series, ms)
		if err != nil {
			failure = &PhaseError{Scenario: sc.Name, Phase: p.Name, Index: i, Err: err}
			break
		}
	}
	data := result.NewData(r.Driver.Name(), sc.Name, p.Name, st.Samples, series, start, time.Now())
	return data, failure
}

// teardown ignores the run's context so a cancelled run still cleans up.
func (r *Runner) teardown(sc Scenario, env Env, st *State) {
	ctx := context.Background()
	log := logging.Scenario(sc.Name, "teardown")
	if sc.Cleanup != nil {
		if err := sc.Cleanup(ctx, env, st); err != nil {
			log.Warnf("cleanup failed: %v", err)
		}
	}
	if err := r.Driver.ClearAll(ctx); err != nil {
		log.Errorf("clearing the store failed, it may hold leftovers: %v", err)
	}
}

// RunAll clears the store once, then runs every planned scenario in order.
// A failed scenario does not stop the batch, its error is collected and the
// results it produced are kept.
func (r *Runner) RunAll(ctx context.Context, plan []Planned) (result.ScenarioResults, error) {
	var sr result.ScenarioResults
	if err := r.Driver.ClearAll(ctx); err != nil {
		return sr, errors.Wrap(err, "clearing the store before the run")
	}
	var merr *multierror.Error
	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			merr = multierror.Append(merr, errors.Wrapf(err, "before scenario %s", p.Scenario.Name))
			break
		}
		res, err := r.Run(ctx, p.Scenario, p.Samples)
		sr.Add(res)
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return sr, merr.ErrorOrNil()
}
