package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/hadsh/spamhunter/pkg/utils"
	"go.uber.org/zap"
)

func TestContextSleepWithLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		duration       time.Duration
		cancelAfter    time.Duration
		cancelMessage  string
		expectedResult utils.SleepResult
	}{
		{
			name:           "sleep completes with logging",
			duration:       10 * time.Millisecond,
			cancelAfter:    0,
			cancelMessage:  "test message",
			expectedResult: utils.SleepCompleted,
		},
		{
			name:           "context cancelled with logging",
			duration:       100 * time.Millisecond,
			cancelAfter:    10 * time.Millisecond,
			cancelMessage:  "cancelled message",
			expectedResult: utils.SleepCancelled,
		},
		{
			name:           "context cancelled with empty message",
			duration:       100 * time.Millisecond,
			cancelAfter:    10 * time.Millisecond,
			cancelMessage:  "",
			expectedResult: utils.SleepCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			logger := zap.NewNop() // Use no-op logger for tests

			if tt.cancelAfter > 0 {
				go func() {
					time.Sleep(tt.cancelAfter)
					cancel()
				}()
			}

			result := utils.ContextSleepWithLog(ctx, tt.duration, logger, tt.cancelMessage)
			if result != tt.expectedResult {
				t.Errorf("ContextSleepWithLog() = %v, want %v", result, tt.expectedResult)
			}
		})
	}
}

func TestContextGuardWithLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		cancelContext  bool
		cancelMessage  string
		expectedResult bool
	}{
		{
			name:           "context not cancelled with message",
			cancelContext:  false,
			cancelMessage:  "test message",
			expectedResult: false,
		},
		{
			name:           "context cancelled with message",
			cancelContext:  true,
			cancelMessage:  "cancelled message",
			expectedResult: true,
		},
		{
			name:           "context cancelled with empty message",
			cancelContext:  true,
			cancelMessage:  "",
			expectedResult: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			logger := zap.NewNop()

			if tt.cancelContext {
				cancel()
			}

			result := utils.ContextGuardWithLog(ctx, logger, tt.cancelMessage)
			if result != tt.expectedResult {
				t.Errorf("ContextGuardWithLog() = %v, want %v", result, tt.expectedResult)
			}
		})
	}
}

func TestErrorSleep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		duration       time.Duration
		cancelAfter    time.Duration
		workerName     string
		expectedResult bool
	}{
		{
			name:           "error sleep completes",
			duration:       10 * time.Millisecond,
			cancelAfter:    0,
			workerName:     "test worker",
			expectedResult: true,
		},
		{
			name:           "error sleep cancelled",
			duration:       100 * time.Millisecond,
			cancelAfter:    10 * time.Millisecond,
			workerName:     "test worker",
			expectedResult: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			logger := zap.NewNop()

			if tt.cancelAfter > 0 {
				go func() {
					time.Sleep(tt.cancelAfter)
					cancel()
				}()
			}

			result := utils.ErrorSleep(ctx, tt.duration, logger, tt.workerName)
			if result != tt.expectedResult {
				t.Errorf("ErrorSleep() = %v, want %v", result, tt.expectedResult)
			}
		})
	}
}

func TestIntervalSleep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		duration       time.Duration
		cancelAfter    time.Duration
		workerName     string
		expectedResult bool
	}{
		{
			name:           "interval sleep completes",
			duration:       10 * time.Millisecond,
			cancelAfter:    0,
			workerName:     "test worker",
			expectedResult: true,
		},
		{
			name:           "interval sleep cancelled",
			duration:       100 * time.Millisecond,
			cancelAfter:    10 * time.Millisecond,
			workerName:     "test worker",
			expectedResult: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			logger := zap.NewNop()

			if tt.cancelAfter > 0 {
				go func() {
					time.Sleep(tt.cancelAfter)
					cancel()
				}()
			}

			result := utils.IntervalSleep(ctx, tt.duration, logger, tt.workerName)
			if result != tt.expectedResult {
				t.Errorf("IntervalSleep() = %v, want %v", result, tt.expectedResult)
			}
		})
	}
}
