package launcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubLauncher struct {
	name  string
	limit int
}

func (s *stubLauncher) Name() string { return s.name }
func (s *stubLauncher) Start(context.Context) error { return nil }
func (s *stubLauncher) Stop(context.Context) error { return nil }
func (s *stubLauncher) StartSession(context.Context, string, string) error { return nil }
func (s *stubLauncher) StopSession(context.Context, string) error { return nil }
func (s *stubLauncher) IsActive() bool { return true }

type limitedLauncher struct {
	stubLauncher
}

func (l *limitedLauncher) ConcurrencyLimit() int { return l.limit }

func TestConcurrencyLimit(t *testing.T) {
	testCases := []struct {
		name     string
		launcher Launcher
		override int
		expected int
	}{
		{name: "default", launcher: &stubLauncher{name: "firefox"}, expected: 1},
		{name: "capability", launcher: &limitedLauncher{stubLauncher{name: "chromium", limit: 4}}, expected: 4},
		{name: "invalid capability", launcher: &limitedLauncher{stubLauncher{name: "chromium", limit: 0}}, expected: 1},
		{name: "override", launcher: &limitedLauncher{stubLauncher{name: "chromium", limit: 4}}, override: 2, expected: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ConcurrencyLimit(tc.launcher, tc.override))
		})
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(&stubLauncher{name: "chromium"}, nil, &stubLauncher{name: "firefox"})
	registry.Register(&stubLauncher{name: "chromium", limit: 3})
	assert.Equal(t, []string{"chromium", "firefox"}, registry.Names())
	assert.Equal(t, 2, registry.Len())
	assert.Equal(t, 3, registry.Lookup("chromium").(*stubLauncher).limit)
	assert.Nil(t, registry.Lookup("webkit"))
	assert.Len(t, registry.List(), 2)
}

func TestStartError(t *testing.T) {
	cause := errors.New("executable not found")
	err := error(&StartError{Launcher: "webkit", Err: cause})
	assert.True(t, errors.Is(err, cause))
	var startErr *StartError
	assert.True(t, errors.As(err, &startErr))
	assert.Contains(t, err.Error(), "webkit")
}
