package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func selectRecords() (string, int64) {
	return "SELECT * FROM business_records WHERE year = 2025", 3
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("failed query logs at error with the statement", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Error)

		gl.Trace(ctx, time.Now(), selectRecords, errors.New("connection refused"))

		entries := logs.FilterMessage("query failed").All()
		require.Len(t, entries, 1)

		fields := map[string]string{}
		for _, f := range entries[0].Context {
			if f.Type == zapcore.StringType {
				fields[f.Key] = f.String
			}
		}
		assert.Contains(t, fields["sql"], "business_records")
	})

	t.Run("record not found is ignored by default", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Error)

		gl.Trace(ctx, time.Now(), selectRecords, gormlogger.ErrRecordNotFound)

		assert.Zero(t, logs.Len())
	})

	t.Run("record not found logs when configured", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))

		gl.Trace(ctx, time.Now(), selectRecords, gormlogger.ErrRecordNotFound)

		assert.Equal(t, 1, logs.FilterMessage("query failed").Len())
	})

	t.Run("slow query logs at warn", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		gl.Trace(ctx, time.Now().Add(-time.Second), selectRecords, nil)

		assert.Equal(t, 1, logs.FilterMessage("slow query").Len())
	})

	t.Run("info level traces every query at debug", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info)

		gl.Trace(ctx, time.Now(), selectRecords, nil)

		entries := logs.FilterMessage("query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	})

	t.Run("silent level logs nothing", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Silent)

		gl.Trace(ctx, time.Now(), selectRecords, errors.New("boom"))

		assert.Zero(t, logs.Len())
	})

	t.Run("request id from the context is attached", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Error)

		tagged := WithRequestID(context.Background(), "req-55")
		gl.Trace(tagged, time.Now(), selectRecords, errors.New("deadlock"))

		entries := logs.FilterMessage("query failed").All()
		require.Len(t, entries, 1)

		var requestID string
		for _, f := range entries[0].Context {
			if f.Key == "request_id" {
				requestID = f.String
			}
		}
		assert.Equal(t, "req-55", requestID)
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Warn)

	quiet := gl.LogMode(gormlogger.Silent)

	require.NotSame(t, gl, quiet)
	assert.Equal(t, gormlogger.Warn, gl.logLevel)
	assert.Equal(t, gormlogger.Silent, quiet.(*GormLogger).logLevel)
}

func TestGormLogger_Levels(t *testing.T) {
	ctx := context.Background()

	gl, logs := newObservedGormLogger(gormlogger.Info)
	gl.Info(ctx, "migrating %s", "business_records")
	gl.Warn(ctx, "retrying %s", "audit append")
	gl.Error(ctx, "dropping %s", "connection")
	assert.Equal(t, 3, logs.Len())

	quiet, quietLogs := newObservedGormLogger(gormlogger.Silent)
	quiet.Info(ctx, "hidden")
	quiet.Warn(ctx, "hidden")
	quiet.Error(ctx, "hidden")
	assert.Zero(t, quietLogs.Len())
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"", gormlogger.Warn},
		{"trace", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run("level "+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.input))
		})
	}
}
