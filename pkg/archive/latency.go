package archive

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloud-bulldozer/graph-crudperf/pkg/sample"
	"github.com/pkg/errors"
)

// ErrArtifactWriteFailed is returned when a latency artifact cannot be
// persisted. The phase statistics stay valid.
var ErrArtifactWriteFailed = errors.New("artifact write failed")

const artifactTimeLayout = "20060102_150405"

// PhaseSpec is the parameter part of an artifact name.
func PhaseSpec(samples int) string {
	return fmt.Sprintf("numSamples=%d", samples)
}

// ArtifactName returns <YYYYMMDD>_<HHMMSS>_<scenario>_<phaseSpec>.out, the
// timestamp in now's location.
func ArtifactName(now time.Time, scenario, phaseSpec string) string {
	return now.Format(artifactTimeLayout) + "_" + scenario + "_" + phaseSpec + ".out"
}

// WriteLatencies persists series under dir, one sample per line in
// fixed-point notation with six decimals, in index order. An empty series
// produces an empty file. It returns the path written.
func WriteLatencies(dir, scenario, phaseSpec string, series sample.Series, now time.Time) (string, error) {
	path := filepath.Join(dir, ArtifactName(now, scenario, phaseSpec))
	fp, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(ErrArtifactWriteFailed, "create %s: %v", path, err)
	}
	w := bufio.NewWriter(fp)
	for _, v := range series {
		if _, err := fmt.Fprintf(w, "%.6f\n", v); err != nil {
			fp.Close()
			return "", errors.Wrapf(ErrArtifactWriteFailed, "write %s: %v", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		fp.Close()
		return "", errors.Wrapf(ErrArtifactWriteFailed, "flush %s: %v", path, err)
	}
	if err := fp.Close(); err != nil {
		return "", errors.Wrapf(ErrArtifactWriteFailed, "close %s: %v", path, err)
	}
	return path, nil
}

// ReadLatencies loads an artifact written by WriteLatencies.
func ReadLatencies(path string) (sample.Series, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer fp.Close()
	series := sample.Series{}
	sc := bufio.NewScanner(fp)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		series = append(series, v)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return series, nil
}
