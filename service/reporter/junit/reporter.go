// Package junit writes run results as a JUnit XML document, one testsuite
// per launcher.
package junit

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/wtr/internal/logger"
	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/orchestrator"
	"github.com/viant/wtr/service/reporter"
)

const (
	// Name identifies the JUnit reporter in configuration.
	Name = "junit"
	// DefaultOutput is used when no output URL is configured.
	DefaultOutput = "./test-results.xml"
	nameSeparator = " > "
)

var (
	invalidChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x84\x86-\x9F\x{FDD0}-\x{FDEF}\x{FFFE}\x{FFFF}]`)
	errorType    = regexp.MustCompile(`^\w+Error:`)
)

// Option customises the reporter.
type Option func(r *Reporter)

// WithOutput sets the destination URL (any afs supported location).
func WithOutput(URL string) Option {
	return func(r *Reporter) {
		if URL != "" {
			r.output = URL
		}
	}
}

// WithFS sets the file system service.
func WithFS(fs afs.Service) Option {
	return func(r *Reporter) { r.fs = fs }
}

// WithLogger sets the reporter logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

// Reporter writes a JUnit document after every completed cycle.
type Reporter struct {
	output string
	fs     afs.Service
	logger *log.Logger
}

var _ reporter.Reporter = (*Reporter)(nil)

// New creates a JUnit reporter.
func New(opts ...Option) *Reporter {
	ret := &Reporter{output: DefaultOutput}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	ret.logger = logger.Or(ret.logger)
	return ret
}

// Name returns the reporter name.
func (r *Reporter) Name() string { return Name }

// Output returns the destination URL.
func (r *Reporter) Output() string { return r.output }

// Report renders summary and uploads it to the output URL.
func (r *Reporter) Report(ctx context.Context, summary *orchestrator.Summary) error {
	if summary == nil {
		return nil
	}
	data, err := Marshal(summary)
	if err != nil {
		return err
	}
	if err = r.fs.Upload(ctx, r.output, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write junit report to %s: %w", r.output, err)
	}
	r.logger.Debug("junit report written", "run", summary.RunID, "output", r.output)
	return nil
}

// Marshal renders summary as an indented JUnit XML document.
func Marshal(summary *orchestrator.Summary) ([]byte, error) {
	doc := &testSuites{}
	byLauncher := map[string]*testSuite{}
	var names []string
	for _, aSession := range summary.Sessions {
		suite, ok := byLauncher[aSession.LauncherID]
		if !ok {
			suite = &testSuite{Name: clean(aSession.LauncherID)}
			byLauncher[aSession.LauncherID] = suite
			names = append(names, aSession.LauncherID)
		}
		addSession(suite, aSession)
	}
	sort.Strings(names)
	for i, name := range names {
		suite := byLauncher[name]
		suite.ID = i
		doc.Suites = append(doc.Suites, suite)
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode junit report: %w", err)
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}

func addSession(suite *testSuite, aSession *session.Session) {
	if suite.Properties == nil && aSession.UserAgent != "" {
		suite.Properties = []*property{{Name: "browserName", Value: clean(aSession.UserAgent)}}
	}
	for _, result := range aSession.TestResults {
		suite.Tests++
		suite.elapsed += result.Duration
		aCase := newCase(aSession.TestFile, result.Name, result.Duration)
		switch {
		case result.Skipped:
			suite.Skipped++
			aCase.Skipped = &struct{}{}
		case !result.Passed:
			suite.Failures++
			aCase.Failure = newFailure(result.Error)
		}
		if result.Error != nil {
			suite.Errors++
		}
		suite.Cases = append(suite.Cases, aCase)
	}
	if aSession.Status == session.StatusFailed && !hasFailedTest(aSession) {
		suite.Tests++
		suite.Failures++
		aCase := newCase(aSession.TestFile, aSession.TestFile, 0)
		sessionErr := aSession.Failure()
		if sessionErr == nil {
			sessionErr = session.NewError(aSession.FailureKind, "session failed")
		}
		aCase.Failure = &failure{
			Message: clean(sessionErr.Message),
			Type:    string(sessionErr.Kind),
			Text:    clean(firstNonEmpty(sessionErr.Stack, sessionErr.Message)),
		}
		suite.Errors++
		suite.Cases = append(suite.Cases, aCase)
	}
	suite.Time = seconds(suite.elapsed)
	if len(aSession.Logs) > 0 {
		var out strings.Builder
		if suite.SystemOut != nil {
			out.WriteString(suite.SystemOut.Text)
		}
		for _, entry := range aSession.Logs {
			out.WriteString(aSession.LauncherID)
			out.WriteString(" ")
			out.WriteString(entry.Message)
			out.WriteString("\n")
		}
		suite.SystemOut = &cdata{Text: clean(out.String())}
	}
}

func newCase(testFile, name string, duration time.Duration) *testCase {
	segments := strings.Split(name, nameSeparator)
	return &testCase{
		Name:      clean(segments[len(segments)-1]),
		Classname: clean(strings.Join(segments[:len(segments)-1], " ")),
		File:      clean(testFile),
		Time:      seconds(duration),
	}
}

func newFailure(err *session.Error) *failure {
	if err == nil {
		return &failure{Message: "test failed"}
	}
	ret := &failure{
		Message: clean(err.Message),
		Type:    string(err.Kind),
		Text:    clean(firstNonEmpty(err.Stack, err.Message)),
	}
	if match := errorType.FindString(err.Stack); match != "" {
		ret.Type = strings.TrimSuffix(match, ":")
	}
	return ret
}

func hasFailedTest(aSession *session.Session) bool {
	for _, result := range aSession.TestResults {
		if result.Failed() {
			return true
		}
	}
	return false
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func clean(value string) string {
	return invalidChars.ReplaceAllString(value, "")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
