// Package main provides the wtr command line entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/viant/wtr"
	"github.com/viant/wtr/internal/logger"
)

var errTestsFailed = errors.New("tests failed")

var (
	configFile string
	browsers   []string
)

var rootCmd = &cobra.Command{
	Use:   "wtr [files...]",
	Short: "Run browser test files across browsers",
	Long: `wtr schedules every (test file, browser) pair as a session, runs them within
the configured concurrency and reports the results. In watch mode changed
files rerun the affected tests.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTests,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("wtr v%s\n", wtr.Version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	defaults := wtr.DefaultConfig()
	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&configFile, "config", "", "YAML or JSON config file")
	persistent.String("log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	persistent.String("log-file", "", "Write logs to file instead of stderr")

	flags := rootCmd.Flags()
	flags.StringSliceVar(&browsers, "browser", nil, "Browser to run in, repeatable (e.g. simulated)")
	flags.Int("concurrency", defaults.Concurrency, "Maximum number of concurrently running sessions")
	flags.Bool("watch", defaults.Watch, "Rerun affected tests when files change")
	flags.Int("watch-debounce", defaults.WatchDebounce, "Milliseconds to coalesce file changes")
	flags.StringSlice("reporter", defaults.Reporters, "Reporters to use (console|junit)")
	flags.String("junit-output", defaults.JUnitOutput, "JUnit report destination")
	flags.String("history-url", "", "Persist session history under this URL")
	flags.String("nats-url", "", "Forward notifications to this NATS server")
	flags.String("trace-file", "", "Write OpenTelemetry spans to this file")
	flags.Int("browser-start-timeout", defaults.BrowserStartTimeout, "Milliseconds for a browser to start a session")
	flags.Int("tests-start-timeout", defaults.TestsStartTimeout, "Milliseconds for the first test to start")
	flags.Int("tests-finish-timeout", defaults.TestsFinishTimeout, "Milliseconds for the tests to finish")
	flags.Int("teardown-timeout", defaults.TeardownTimeout, "Milliseconds to stop a session or browser")

	for key, flag := range map[string]string{
		"logLevel":            "log-level",
		"logFile":             "log-file",
		"concurrency":         "concurrency",
		"watch":               "watch",
		"watchDebounce":       "watch-debounce",
		"reporters":           "reporter",
		"junitOutput":         "junit-output",
		"historyURL":          "history-url",
		"natsURL":             "nats-url",
		"traceFile":           "trace-file",
		"browserStartTimeout": "browser-start-timeout",
		"testsStartTimeout":   "tests-start-timeout",
		"testsFinishTimeout":  "tests-finish-timeout",
		"teardownTimeout":     "teardown-timeout",
	} {
		lookup := flags.Lookup(flag)
		if lookup == nil {
			lookup = persistent.Lookup(flag)
		}
		if err := viper.BindPFlag(key, lookup); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
			os.Exit(1)
		}
	}
	viper.SetEnvPrefix("WTR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(versionCmd)
}

func loadConfig(args []string) (*wtr.Config, error) {
	config := wtr.DefaultConfig()
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %v: %w", configFile, err)
		}
	}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if len(args) > 0 {
		config.Files = args
	}
	if len(browsers) > 0 {
		config.Browsers = nil
		for _, name := range browsers {
			config.Browsers = append(config.Browsers, &wtr.BrowserConfig{Name: name})
		}
	}
	if len(config.Browsers) == 0 {
		config.Browsers = []*wtr.BrowserConfig{{Name: wtr.SimulatedPrefix}}
	}
	return config, nil
}

func runTests(_ *cobra.Command, args []string) error {
	config, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err = logger.Configure(config.LogLevel, config.LogFile); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := wtr.New(ctx, wtr.WithConfig(config))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := srv.Close(context.Background()); closeErr != nil {
			logger.Logger.Warn("shutdown failed", "err", closeErr)
		}
	}()
	rt := srv.Runtime()
	if config.Watch {
		if err = rt.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	}
	summary, err := rt.Run(ctx)
	if err != nil {
		return err
	}
	if !summary.Success() {
		return errTestsFailed
	}
	return nil
}
