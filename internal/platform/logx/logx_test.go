// internal/platform/logx/logx_test.go
package logx

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DBG", LevelDebug},
		{"  debug  ", LevelDebug},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{"err", LevelError},
		{"ERROR", LevelError},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestKVPairs(t *testing.T) {
	assert.Equal(t, []string{"key=value", "n=42"}, kvPairs("key", "value", "n", 42))
	assert.Equal(t, []string{"orphan=(missing)"}, kvPairs("orphan"))
	assert.Equal(t, []string{`reason="connection reset"`}, kvPairs("reason", "connection reset"))
	assert.Empty(t, kvPairs())
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelDebug)

	scoped := logger.With("component", "enumerator")
	scoped.Info("chain finished", "seed", "http://a.example/x")
	logger.Info("unscoped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "INF chain finished component=enumerator seed=http://a.example/x")
	assert.NotContains(t, lines[1], "component=enumerator")
}

func TestLogger_SetLevelIsShared(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelInfo)
	scoped := logger.With("component", "populator")

	scoped.Debug("hidden")
	logger.SetLevel(LevelDebug)
	scoped.Debug("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "DBG visible component=populator")
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   Level
		visible []string
		hidden  []string
	}{
		{LevelDebug, []string{"DBG", "INF", "WRN", "ERR"}, nil},
		{LevelInfo, []string{"INF", "WRN", "ERR"}, []string{"DBG"}},
		{LevelWarn, []string{"WRN", "ERR"}, []string{"DBG", "INF"}},
		{LevelError, []string{"ERR"}, []string{"DBG", "INF", "WRN"}},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.level)

			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Err(errors.New("e"))

			out := buf.String()
			for _, tag := range tt.visible {
				assert.Contains(t, out, " "+tag)
			}
			for _, tag := range tt.hidden {
				assert.NotContains(t, out, " "+tag)
			}
		})
	}
}

func TestLogger_Err(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelError)

	logger.Err(nil, "ignored", true)
	assert.Empty(t, buf.String())

	logger.Err(errors.New("tls failure"), "phase", "fetch")
	out := buf.String()
	assert.Contains(t, out, `ERR error="tls failure" phase=fetch`)
	assert.NotContains(t, out, "  ")
}

func TestLogger_ThreadSafety(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			scoped := logger.With("worker", id)
			for j := 0; j < 50; j++ {
				scoped.Info("tick", "n", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 500)
}

func TestNew_WithEnv(t *testing.T) {
	t.Setenv(EnvLevel, "warn")

	impl, ok := New().(*simpleLogger)
	require.True(t, ok)
	assert.Equal(t, LevelWarn, *impl.lvl)
}
