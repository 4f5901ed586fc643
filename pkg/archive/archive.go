package archive

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cloud-bulldozer/go-commons/indexers"
	"github.com/cloud-bulldozer/graph-crudperf/pkg/logging"
	result "github.com/cloud-bulldozer/graph-crudperf/pkg/results"
	jsoniter "github.com/json-iterator/go"
)

const ltcyMetric = "ms"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Doc struct of the JSON document to be indexed
type Doc struct {
	UUID       string          `json:"uuid"`
	Timestamp  time.Time       `json:"timestamp"`
	Driver     string          `json:"driver"`
	Scenario   string          `json:"scenario"`
	Phase      string          `json:"phase"`
	Samples    int             `json:"samples"`
	Count      int             `json:"count"`
	Min        float64         `json:"min"`
	Max        float64         `json:"max"`
	Mean       float64         `json:"mean"`
	StdDev     float64         `json:"stdDev"`
	P99        float64         `json:"p99"`
	Confidence []float64       `json:"confidence"`
	LtcyMetric string          `json:"ltcyMetric"`
	Complete   bool            `json:"complete"`
	Artifact   string          `json:"artifact,omitempty"`
	StartTime  time.Time       `json:"startTime"`
	EndTime    time.Time       `json:"endTime"`
	Metadata   result.Metadata `json:"metadata"`
}

// finite maps NaN and infinities, which JSON cannot carry, to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Connect returns a client connected to the desired cluster.
func Connect(url, index string, skip bool) (*indexers.Indexer, error) {
	var err error
	var indexer *indexers.Indexer
	indexerConfig := indexers.IndexerConfig{
		Type:               "opensearch",
		Servers:            []string{url},
		Index:              index,
		InsecureSkipVerify: skip,
	}
	logging.Infof("📁 Creating indexer: %s", indexerConfig.Type)
	indexer, err = indexers.NewIndexer(indexerConfig)
	if err != nil {
		logging.Errorf("%v indexer: %v", indexerConfig.Type, err.Error())
		return nil, fmt.Errorf("failure while connecting to OpenSearch")
	}
	logging.Infof("Connected to : %s ", url)
	return indexer, nil
}

// BuildDocs returns the documents that need to be indexed or an error.
func BuildDocs(sr result.ScenarioResults, uuid string) ([]interface{}, error) {
	now := time.Now().UTC()

	var docs []interface{}
	if len(sr.Results) < 1 {
		return nil, fmt.Errorf("no result documents")
	}
	for _, r := range sr.Results {
		if len(r.Name) < 1 {
			continue
		}
		_, lo, hi := result.ConfidenceInterval(r.Series.Float64(), 0.95)
		d := Doc{
			UUID:       uuid,
			Timestamp:  now,
			Driver:     r.Driver,
			Scenario:   r.Scenario,
			Phase:      r.Name,
			Samples:    r.Samples,
			Count:      r.Summary.Count,
			Min:        finite(r.Summary.Min),
			Max:        finite(r.Summary.Max),
			Mean:       finite(r.Summary.Mean),
			StdDev:     finite(r.Summary.StdDev),
			P99:        r.P99(),
			Confidence: []float64{finite(lo), finite(hi)},
			LtcyMetric: ltcyMetric,
			Complete:   !r.Aborted,
			Artifact:   r.Artifact,
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
			Metadata:   sr.Metadata,
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Common csv header fields.
func commonCsvHeaderFields() []string {
	return []string{
		"Driver",
		"Scenario",
		"Phase",
		"# of Samples",
		"Complete",
		"Confidence metric - low",
		"Confidence metric - high",
	}
}

// Common csv data fields.
func commonCsvDataFields(row result.Data) []string {
	_, lo, hi := result.ConfidenceInterval(row.Series.Float64(), 0.95)
	return []string{
		row.Driver,
		row.Scenario,
		row.Name,
		strconv.Itoa(row.Summary.Count),
		strconv.FormatBool(!row.Aborted),
		strconv.FormatFloat(finite(lo), 'f', -1, 64),
		strconv.FormatFloat(finite(hi), 'f', -1, 64),
	}
}

// WriteJSONResult sends the results as JSON to w
func WriteJSONResult(w io.Writer, r result.ScenarioResults) error {
	docs, err := BuildDocs(r, r.UUID)
	if err != nil {
		return err
	}
	p, err := json.MarshalIndent(docs, " ", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(p))
	return err
}

// WriteCSVResult will write the latency summaries to dir and return the file
// name.
func WriteCSVResult(dir string, r result.ScenarioResults) (string, error) {
	d := time.Now().Unix()
	path := filepath.Join(dir, fmt.Sprintf("result-%d.csv", d))
	fp, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive file")
	}
	defer fp.Close()
	archive := csv.NewWriter(fp)

	data := append(commonCsvHeaderFields(),
		"Min",
		"Max",
		"Mean",
		"StdDev",
		"99%tile Observed Latency",
		"Latency Metric",
	)

	if err := archive.Write(data); err != nil {
		return "", fmt.Errorf("failed to write result archive to file")
	}
	for _, row := range r.Results {
		data := append(commonCsvDataFields(row),
			fmt.Sprintf("%f", row.Summary.Min),
			fmt.Sprintf("%f", row.Summary.Max),
			fmt.Sprintf("%f", row.Summary.Mean),
			fmt.Sprintf("%f", row.Summary.StdDev),
			fmt.Sprintf("%f", row.P99()),
			ltcyMetric,
		)
		if err := archive.Write(data); err != nil {
			return "", fmt.Errorf("failed to write archive to file")
		}
	}
	archive.Flush()
	if err := archive.Error(); err != nil {
		return "", fmt.Errorf("failed to write archive to file")
	}
	return path, nil
}
