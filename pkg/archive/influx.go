package archive

import (
	"context"

	"github.com/cloud-bulldozer/graph-crudperf/pkg/logging"
	result "github.com/cloud-bulldozer/graph-crudperf/pkg/results"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
)

const measurement = "crud_latency"

// InfluxConfig locates the bucket phase summaries are written to.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Points turns every phase of sr into one point, tagged with the run uuid.
func Points(sr result.ScenarioResults, uuid string) []*write.Point {
	points := make([]*write.Point, 0, len(sr.Results))
	for _, r := range sr.Results {
		p := influxdb2.NewPointWithMeasurement(measurement).
			AddTag("uuid", uuid).
			AddTag("driver", r.Driver).
			AddTag("scenario", r.Scenario).
			AddTag("phase", r.Name).
			AddField("samples", r.Samples).
			AddField("count", r.Summary.Count).
			AddField("min", finite(r.Summary.Min)).
			AddField("max", finite(r.Summary.Max)).
			AddField("mean", finite(r.Summary.Mean)).
			AddField("stdDev", finite(r.Summary.StdDev)).
			AddField("p99", r.P99()).
			AddField("complete", !r.Aborted).
			SetTime(r.EndTime)
		points = append(points, p)
	}
	return points
}

// SendToInfluxDB writes the phase summaries of sr with one blocking write.
func SendToInfluxDB(ctx context.Context, cfg InfluxConfig, sr result.ScenarioResults, uuid string) error {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	defer client.Close()
	writer := client.WriteAPIBlocking(cfg.Org, cfg.Bucket)
	points := Points(sr, uuid)
	logging.Infof("Writing [%d] points to InfluxDB bucket %s", len(points), cfg.Bucket)
	if err := writer.WritePoint(ctx, points...); err != nil {
		return errors.Wrapf(err, "writing to influxdb %s", cfg.URL)
	}
	return nil
}
