package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(t *testing.T, buf *bytes.Buffer, level Level) Logger {
	t.Helper()
	l, err := NewWriterLogger(buf, &Config{Level: level, Format: JSONFormat, Output: StdoutOutput, DisableTimestamp: true})
	require.NoError(t, err)
	return l
}

func lines(buf *bytes.Buffer) []map[string]interface{} {
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", *DefaultConfig(), false},
		{"debug", *DebugConfig(), false},
		{"server", *ServerConfig(), false},
		{"bad level", Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, true},
		{"bad format", Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, true},
		{"bad output", Config{Level: InfoLevel, Format: TextFormat, Output: "syslog"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_FileOutputDefaultsPath(t *testing.T) {
	cfg := &Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultLogFile, cfg.File)
}

func TestLogger_FieldsAreKept(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(t, &buf, InfoLevel)

	l.WithComponent("ingest").WithField("sender", "VM-HDFCBK").WithError(errors.New("boom")).Info("message rejected")

	entries := lines(&buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "ingest", entries[0]["component"])
	assert.Equal(t, "VM-HDFCBK", entries[0]["sender"])
	assert.Equal(t, "boom", entries[0]["error"])
	assert.Equal(t, "message rejected", entries[0]["msg"])
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(t, &buf, WarnLevel)

	l.Info("hidden")
	l.Warn("shown")

	entries := lines(&buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithField("k", "v").Error("nothing")
	})
}

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(ProgressConfig{Operation: "scan", Total: 4, Logger: jsonLogger(t, &buf, InfoLevel), LogInterval: time.Hour})

	p.Record("accepted")
	p.Record("accepted")
	p.Record("duplicate")
	p.Increment()

	stats := p.Complete(nil)
	assert.Equal(t, int64(4), stats.Current)
	assert.Equal(t, int64(2), stats.Outcomes["accepted"])
	assert.Equal(t, int64(1), stats.Outcomes["duplicate"])
	assert.InDelta(t, 100.0, stats.Percentage, 0.001)
	assert.Equal(t, "scan: 4/4 (100.0%), accepted=2, duplicate=1", stats.String())

	entries := lines(&buf)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, "Operation completed", last["msg"])
	assert.EqualValues(t, 2, last["accepted"])
}

func TestProgressTracker_LogsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(ProgressConfig{Operation: "scan", Logger: jsonLogger(t, &buf, InfoLevel), LogInterval: time.Minute})

	clock := p.startTime
	p.now = func() time.Time { return clock }

	p.Increment()
	clock = clock.Add(2 * time.Minute)
	p.Increment()

	var updates int
	for _, e := range lines(&buf) {
		if e["msg"] == "Progress update" {
			updates++
		}
	}
	assert.Equal(t, 1, updates)
	assert.Equal(t, "scan: 2 processed", p.Stats().String())
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(t, &buf, InfoLevel)

	err := TimedOperation("export", l, func() error { return errors.New("disk full") })
	assert.EqualError(t, err, "disk full")

	entries := lines(&buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Operation failed", entries[0]["msg"])
	assert.Equal(t, "export", entries[0]["operation"])
}
