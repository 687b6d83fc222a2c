package orchestrator

import "time"

// Config represents orchestrator configuration.
type Config struct {
	// Concurrency is the global number of sessions holding a slot.
	Concurrency int

	// LauncherConcurrency overrides the advertised limit per launcher.
	LauncherConcurrency map[string]int

	BrowserStartTimeout time.Duration
	TestsStartTimeout   time.Duration
	TestsFinishTimeout  time.Duration

	// TeardownTimeout bounds every StopSession and launcher Stop call.
	TeardownTimeout time.Duration

	// QueueBuffer sizes the lifecycle inbox.
	QueueBuffer int
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:         1,
		BrowserStartTimeout: 30 * time.Second,
		TestsStartTimeout:   10 * time.Second,
		TestsFinishTimeout:  20 * time.Second,
		TeardownTimeout:     5 * time.Second,
		QueueBuffer:         1024,
	}
}
