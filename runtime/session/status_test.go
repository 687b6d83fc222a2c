package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	testCases := []struct {
		name      string
		from      Status
		to        Status
		expectErr bool
	}{
		{name: "promote", from: StatusScheduled, to: StatusInitializing},
		{name: "happy path starting", from: StatusInitializing, to: StatusStarting},
		{name: "started", from: StatusStarting, to: StatusStarted},
		{name: "first test", from: StatusStarted, to: StatusTestStarted},
		{name: "no tests in file", from: StatusStarted, to: StatusTestFinished},
		{name: "all tests done", from: StatusTestStarted, to: StatusTestFinished},
		{name: "teardown", from: StatusTestFinished, to: StatusStopping},
		{name: "finish", from: StatusStopping, to: StatusFinished},
		{name: "fail from scheduled", from: StatusScheduled, to: StatusFailed},
		{name: "stop from test started", from: StatusTestStarted, to: StatusStopped},
		{name: "forced stopping", from: StatusStarting, to: StatusStopping},
		{name: "stopping to stopped", from: StatusStopping, to: StatusStopped},
		{name: "test started before started", from: StatusStarting, to: StatusTestStarted, expectErr: true},
		{name: "skip starting", from: StatusInitializing, to: StatusStarted, expectErr: true},
		{name: "finish without tests", from: StatusStarted, to: StatusFinished, expectErr: true},
		{name: "from terminal", from: StatusFinished, to: StatusStopped, expectErr: true},
		{name: "failed is final", from: StatusFailed, to: StatusScheduled, expectErr: true},
		{name: "stopping twice", from: StatusStopping, to: StatusStopping, expectErr: true},
		{name: "unknown", from: Status("bogus"), to: StatusFailed, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransition("s1", tc.from, tc.to)
			if !tc.expectErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
			var invalid *InvalidTransitionError
			assert.True(t, errors.As(err, &invalid))
			assert.Equal(t, tc.from, invalid.From)
			assert.Equal(t, tc.to, invalid.To)
		})
	}
}

func TestStatus_HoldsSlot(t *testing.T) {
	for _, status := range Statuses {
		expected := status != StatusScheduled && !status.IsTerminal()
		assert.Equal(t, expected, status.HoldsSlot(), status)
	}
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("testStarted")
	assert.NoError(t, err)
	assert.Equal(t, StatusTestStarted, status)
	_, err = ParseStatus("running")
	assert.Error(t, err)
}
