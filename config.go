package wtr

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/viant/afs"
	"github.com/viant/wtr/service/orchestrator"
	"github.com/viant/wtr/service/reporter/console"
	"github.com/viant/wtr/service/reporter/junit"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of a test run. It can be loaded
// from YAML or JSON and bound to CLI flags. Timeouts are in milliseconds.
type Config struct {
	Concurrency         int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
	BrowserStartTimeout int `json:"browserStartTimeout" yaml:"browserStartTimeout" mapstructure:"browserStartTimeout"`
	TestsStartTimeout   int `json:"testsStartTimeout" yaml:"testsStartTimeout" mapstructure:"testsStartTimeout"`
	TestsFinishTimeout  int `json:"testsFinishTimeout" yaml:"testsFinishTimeout" mapstructure:"testsFinishTimeout"`
	TeardownTimeout     int `json:"teardownTimeout" yaml:"teardownTimeout" mapstructure:"teardownTimeout"`

	Files         []string         `json:"files" yaml:"files" mapstructure:"files"`
	Browsers      []*BrowserConfig `json:"browsers" yaml:"browsers" mapstructure:"browsers"`
	Watch         bool             `json:"watch" yaml:"watch" mapstructure:"watch"`
	WatchDebounce int              `json:"watchDebounce" yaml:"watchDebounce" mapstructure:"watchDebounce"`
	WatchRoots    []string         `json:"watchRoots,omitempty" yaml:"watchRoots,omitempty" mapstructure:"watchRoots"`

	Reporters         []string `json:"reporters" yaml:"reporters" mapstructure:"reporters"`
	JUnitOutput       string   `json:"junitOutput,omitempty" yaml:"junitOutput,omitempty" mapstructure:"junitOutput"`
	HistoryURL        string   `json:"historyURL,omitempty" yaml:"historyURL,omitempty" mapstructure:"historyURL"`
	NatsURL           string   `json:"natsURL,omitempty" yaml:"natsURL,omitempty" mapstructure:"natsURL"`
	NatsSubjectPrefix string   `json:"natsSubjectPrefix,omitempty" yaml:"natsSubjectPrefix,omitempty" mapstructure:"natsSubjectPrefix"`
	LogLevel          string   `json:"logLevel,omitempty" yaml:"logLevel,omitempty" mapstructure:"logLevel"`
	LogFile           string   `json:"logFile,omitempty" yaml:"logFile,omitempty" mapstructure:"logFile"`
	TraceFile         string   `json:"traceFile,omitempty" yaml:"traceFile,omitempty" mapstructure:"traceFile"`
}

// BrowserConfig selects a launcher and optionally overrides its concurrency.
type BrowserConfig struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Concurrency int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty" mapstructure:"concurrency"`
}

// DefaultConcurrency is half the available CPUs, at least one.
func DefaultConcurrency() int {
	if ret := runtime.NumCPU() / 2; ret > 1 {
		return ret
	}
	return 1
}

// DefaultConfig returns a Config populated with the default values.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:         DefaultConcurrency(),
		BrowserStartTimeout: 30000,
		TestsStartTimeout:   10000,
		TestsFinishTimeout:  20000,
		TeardownTimeout:     5000,
		WatchDebounce:       100,
		Reporters:           []string{console.Name},
		JUnitOutput:         junit.DefaultOutput,
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be > 0"))
	}
	for key, value := range map[string]int{
		"browserStartTimeout": c.BrowserStartTimeout,
		"testsStartTimeout":   c.TestsStartTimeout,
		"testsFinishTimeout":  c.TestsFinishTimeout,
		"teardownTimeout":     c.TeardownTimeout,
		"watchDebounce":       c.WatchDebounce,
	} {
		if value < 0 {
			errs = append(errs, fmt.Errorf("%v must be >= 0", key))
		}
	}
	seen := map[string]bool{}
	for i, browser := range c.Browsers {
		switch {
		case browser == nil || browser.Name == "":
			errs = append(errs, fmt.Errorf("browsers[%d].name is required", i))
			continue
		case seen[browser.Name]:
			errs = append(errs, fmt.Errorf("browsers[%d]: duplicate browser %v", i, browser.Name))
		case browser.Concurrency < 0:
			errs = append(errs, fmt.Errorf("browsers[%d].concurrency must be >= 0", i))
		}
		seen[browser.Name] = true
	}
	for _, name := range c.Reporters {
		if name != console.Name && name != junit.Name {
			errs = append(errs, fmt.Errorf("unsupported reporter: %v", name))
		}
	}
	return errors.Join(errs...)
}

// OrchestratorConfig converts the run configuration.
func (c *Config) OrchestratorConfig() orchestrator.Config {
	ret := orchestrator.DefaultConfig()
	ret.Concurrency = c.Concurrency
	ret.BrowserStartTimeout = millis(c.BrowserStartTimeout)
	ret.TestsStartTimeout = millis(c.TestsStartTimeout)
	ret.TestsFinishTimeout = millis(c.TestsFinishTimeout)
	if c.TeardownTimeout > 0 {
		ret.TeardownTimeout = millis(c.TeardownTimeout)
	}
	for _, browser := range c.Browsers {
		if browser == nil || browser.Concurrency <= 0 {
			continue
		}
		if ret.LauncherConcurrency == nil {
			ret.LauncherConcurrency = map[string]int{}
		}
		ret.LauncherConcurrency[browser.Name] = browser.Concurrency
	}
	return ret
}

// BrowserNames returns the configured browser names in order.
func (c *Config) BrowserNames() []string {
	var ret []string
	for _, browser := range c.Browsers {
		if browser != nil {
			ret = append(ret, browser.Name)
		}
	}
	return ret
}

// LoadConfig reads a YAML or JSON config from any afs supported URL on top
// of the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	return ret, nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
