package result

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	moremath "github.com/aclements/go-moremath/stats"
	"github.com/cloud-bulldozer/graph-crudperf/pkg/logging"
	"github.com/cloud-bulldozer/graph-crudperf/pkg/sample"
	stats "github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Specify Language specific case wrapper as global variable
var caser = cases.Title(language.English)

// Summary is the descriptive statistics of one latency series, in
// milliseconds.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// Summarize computes count, min, max, mean and the sample standard deviation
// (n-1 denominator) of series. An empty series yields Count 0 and NaN for
// every other field. A single sample has a standard deviation of 0.
func Summarize(series sample.Series) Summary {
	vals := series.Float64()
	if len(vals) == 0 {
		nan := math.NaN()
		return Summary{Min: nan, Max: nan, Mean: nan, StdDev: nan}
	}
	s := Summary{Count: len(vals)}
	s.Min, _ = stats.Min(vals)
	s.Max, _ = stats.Max(vals)
	s.Mean, _ = Average(vals)
	if len(vals) > 1 {
		s.StdDev, _ = stats.StandardDeviationSample(vals)
	}
	return s
}

// String renders the console summary line of a phase.
func (s Summary) String() string {
	return fmt.Sprintf("numSamples: %d min: %11.6f max: %11.6f mean: %11.6f stdDev: %11.6f",
		s.Count, s.Min, s.Max, s.Mean, s.StdDev)
}

// Average accepts array of floats to calculate average
func Average(vals []float64) (float64, error) {
	return stats.Mean(vals)
}

// Percentile accepts array of floats and the desired %tile to calculate
func Percentile(vals []float64, ptile float64) (float64, error) {
	return stats.Percentile(vals, ptile)
}

// ConfidenceInterval returns the mean of vals with the bounds of its ci
// confidence interval. With fewer than two samples the interval collapses on
// the mean.
func ConfidenceInterval(vals []float64, ci float64) (float64, float64, float64) {
	if len(vals) < 2 {
		m, err := stats.Mean(vals)
		if err != nil {
			return 0, 0, 0
		}
		return m, m, m
	}
	return moremath.MeanCI(vals, ci)
}

// Data is the outcome of one timed phase.
type Data struct {
	Driver   string `json:"driver"`
	Scenario string `json:"scenario"`
	// Name is the artifact name, e.g. "crud-indexed-read".
	Name      string        `json:"name"`
	Samples   int           `json:"samples"`
	Summary   Summary       `json:"summary"`
	Series    sample.Series `json:"-"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	// Artifact is the path of the persisted latency file, empty when the
	// phase aborted or the write failed.
	Artifact string `json:"artifact,omitempty"`
	Aborted  bool   `json:"aborted"`
}

// NewData summarizes series into a phase result.
func NewData(driver, scenario, name string, samples int, series sample.Series, start, end time.Time) Data {
	return Data{
		Driver:    driver,
		Scenario:  scenario,
		Name:      name,
		Samples:   samples,
		Summary:   Summarize(series),
		Series:    series,
		StartTime: start,
		EndTime:   end,
	}
}

// P99 returns the 99th percentile latency of the phase, 0 when empty.
func (d Data) P99() float64 {
	p, err := Percentile(d.Series.Float64(), 99)
	if err != nil {
		return 0
	}
	return p
}

// ScenarioResult holds the phases of one scenario, in execution order.
type ScenarioResult struct {
	Scenario string
	Phases   []Data
}

// ScenarioResults is everything a run produced.
type ScenarioResults struct {
	Results []Data
	Metadata
}

// Metadata for the run
type Metadata struct {
	UUID     string `json:"uuid"`
	Driver   string `json:"driver"`
	Backend  string `json:"backend"`
	Hostname string `json:"hostname"`
}

// Add appends the phases of r.
func (s *ScenarioResults) Add(r ScenarioResult) {
	s.Results = append(s.Results, r.Phases...)
}

// Method to init common table structure.
func initTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	return table
}

func ms(v float64) string {
	return fmt.Sprintf("%f (ms)", v)
}

// RenderLatencyResult writes the latency table of s to w.
func RenderLatencyResult(w io.Writer, s ScenarioResults) {
	table := initTable(w, []string{"Result Type", "Driver", "Scenario", "Phase", "Samples", "Min", "Max", "Mean", "StdDev", "99%tile", "95% Confidence Interval", "Complete"})
	for _, r := range s.Results {
		_, lo, hi := ConfidenceInterval(r.Series.Float64(), 0.95)
		table.Append([]string{
			fmt.Sprintf("📊 %s Results", caser.String("latency")),
			r.Driver,
			r.Scenario,
			r.Name,
			strconv.Itoa(r.Summary.Count),
			ms(r.Summary.Min),
			ms(r.Summary.Max),
			ms(r.Summary.Mean),
			ms(r.Summary.StdDev),
			ms(r.P99()),
			fmt.Sprintf("%f-%f (ms)", lo, hi),
			strconv.FormatBool(!r.Aborted),
		})
	}
	table.Render()
}

// ShowLatencyResult accepts ScenarioResults to display to the user via stdout
func ShowLatencyResult(s ScenarioResults) {
	if len(s.Results) == 0 {
		return
	}
	logging.Debug("Rendering latency results")
	RenderLatencyResult(os.Stdout, s)
}

// Failed lists the phases that did not complete.
func Failed(s ScenarioResults) []string {
	var names []string
	for _, r := range s.Results {
		if r.Aborted {
			names = append(names, r.Name)
		}
	}
	return names
}

// Phases returns the names of the phases in s joined for log output.
func Phases(s ScenarioResult) string {
	names := make([]string, 0, len(s.Phases))
	for _, p := range s.Phases {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
