package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloud-bulldozer/graph-crudperf/pkg/drivers"
	log "github.com/cloud-bulldozer/graph-crudperf/pkg/logging"
	"github.com/cloud-bulldozer/graph-crudperf/pkg/scenario"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by the tool, e.g.
// CRUDPERF_URL.
const EnvPrefix = "CRUDPERF"

// Config describes one scenario to run
type Config struct {
	Name    string `yaml:"name"`
	Samples int    `yaml:"samples"`
}

// Backend describes how to reach the store under test.
type Backend struct {
	Driver      string        `yaml:"driver,omitempty"`
	URL         string        `yaml:"url,omitempty"`
	Username    string        `yaml:"username,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	Database    string        `yaml:"database,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	IndexSettle time.Duration `yaml:"indexSettle,omitempty"`
	EdgeLabel   string        `yaml:"edgeLabel,omitempty"`
}

// RunFile is the layout of the configuration file.
type RunFile struct {
	Scenarios []Config `yaml:"scenarios"`
	Backend   Backend  `yaml:"backend,omitempty"`
}

// Options converts the backend block into driver options.
func (b Backend) Options() drivers.Options {
	return drivers.Options{
		URL:         b.URL,
		Username:    b.Username,
		Password:    b.Password,
		Database:    b.Database,
		Timeout:     b.Timeout,
		IndexSettle: b.IndexSettle,
		EdgeLabel:   b.EdgeLabel,
	}
}

func validConfig(cfg Config) (bool, error) {
	if _, ok := scenario.Lookup(cfg.Name); !ok {
		return false, fmt.Errorf("unknown scenario %q, valid scenarios: %s", cfg.Name, strings.Join(scenario.Names(), ", "))
	}
	if cfg.Samples < 1 {
		return false, fmt.Errorf("%s: samples must be > 0", cfg.Name)
	}
	return true, nil
}

func validDriver(name string) error {
	for _, d := range drivers.Names() {
		if strings.EqualFold(d, name) {
			return nil
		}
	}
	return fmt.Errorf("unknown driver %q, valid drivers: %s", name, strings.Join(drivers.Names(), ", "))
}

// ParseConf will read in the configuration file which
// describes which scenarios to run and against which backend
// Returns RunFile struct
func ParseConf(fn string) (RunFile, error) {
	log.Infof("📒 Reading %s file. ", fn)
	var rf RunFile
	buf, err := os.ReadFile(fn)
	if err != nil {
		return rf, err
	}
	if err := yaml.Unmarshal(buf, &rf); err != nil {
		return rf, fmt.Errorf("in file %q: %v", fn, err)
	}
	if len(rf.Scenarios) == 0 {
		return rf, fmt.Errorf("in file %q: no scenarios", fn)
	}
	if err := Validate(rf.Scenarios); err != nil {
		return rf, fmt.Errorf("in file %q: %v", fn, err)
	}
	if rf.Backend.Driver != "" {
		if err := validDriver(rf.Backend.Driver); err != nil {
			return rf, fmt.Errorf("in file %q: %v", fn, err)
		}
	}
	return rf, nil
}

// Validate checks every entry of a plan, however it was built.
func Validate(cfgs []Config) error {
	for _, value := range cfgs {
		if ok, err := validConfig(value); !ok {
			return err
		}
	}
	return nil
}

// DefaultPlan runs the whole catalog, the warm-up with its own sample count.
func DefaultPlan(samples, warmupSamples int) []Config {
	var plan []Config
	for _, name := range scenario.Names() {
		n := samples
		if name == scenario.Warmup {
			n = warmupSamples
		}
		plan = append(plan, Config{Name: name, Samples: n})
	}
	return plan
}

// Backend keys resolved through viper.
const (
	KeyDriver      = "driver"
	KeyURL         = "url"
	KeyUsername    = "username"
	KeyPassword    = "password"
	KeyDatabase    = "database"
	KeyTimeout     = "timeout"
	KeyIndexSettle = "index-settle"
	KeyEdgeLabel   = "edge-label"
)

// NewViper returns a viper instance reading CRUDPERF_* variables, dashes in
// keys become underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ResolveBackend merges the backend block of the run file into v and returns
// the effective backend. Changed flags win over the environment, which wins
// over the file, which wins over flag defaults.
func ResolveBackend(v *viper.Viper, file Backend) (Backend, error) {
	fromFile := map[string]interface{}{}
	set := func(key string, val interface{}, empty bool) {
		if !empty {
			fromFile[key] = val
		}
	}
	set(KeyDriver, file.Driver, file.Driver == "")
	set(KeyURL, file.URL, file.URL == "")
	set(KeyUsername, file.Username, file.Username == "")
	set(KeyPassword, file.Password, file.Password == "")
	set(KeyDatabase, file.Database, file.Database == "")
	set(KeyTimeout, file.Timeout.String(), file.Timeout == 0)
	set(KeyIndexSettle, file.IndexSettle.String(), file.IndexSettle == 0)
	set(KeyEdgeLabel, file.EdgeLabel, file.EdgeLabel == "")
	if err := v.MergeConfigMap(fromFile); err != nil {
		return Backend{}, err
	}
	b := Backend{
		Driver:      v.GetString(KeyDriver),
		URL:         v.GetString(KeyURL),
		Username:    v.GetString(KeyUsername),
		Password:    v.GetString(KeyPassword),
		Database:    v.GetString(KeyDatabase),
		Timeout:     v.GetDuration(KeyTimeout),
		IndexSettle: v.GetDuration(KeyIndexSettle),
		EdgeLabel:   v.GetString(KeyEdgeLabel),
	}
	if b.Driver == "" {
		return b, fmt.Errorf("no driver selected, valid drivers: %s", strings.Join(drivers.Names(), ", "))
	}
	if err := validDriver(b.Driver); err != nil {
		return b, err
	}
	return b, nil
}

// Show Display the scenario about to run
func Show(c Config, driver string) {
	log.Infof("🗒️  Running %s against %s with %d samples ", c.Name, driver, c.Samples)
}
