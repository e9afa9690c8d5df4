package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := map[string]struct {
		level   string
		wantErr bool
	}{
		"debug level":   {level: "debug"},
		"info level":    {level: "info"},
		"warn level":    {level: "warn"},
		"error level":   {level: "error"},
		"unknown level": {level: "loud", wantErr: true},
		"empty level":   {level: "", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			log, err := New(tc.level)
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, log)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &ZapLogger{z: zap.New(core)}

	log.InfoObj("article published", "publish_ok", map[string]any{
		"slug":  "local-mela-draws-crowds",
		"count": 3,
	})

	entries := logs.All()
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "article published", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "publish_ok", fields["event"])
	assert.Equal(t, "local-mela-draws-crowds", fields["slug"])
	assert.EqualValues(t, 3, fields["count"])
}

func TestZapLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := &ZapLogger{z: zap.New(core)}

	log.DebugObj("dropped", "debug_event", nil)
	log.InfoObj("dropped", "info_event", nil)
	log.WarnObj("kept", "warn_event", nil)
	log.ErrorObj("kept", "error_event", nil)

	assert.Equal(t, 2, logs.Len())
}

func TestNopLogger(t *testing.T) {
	var log Logger = NopLogger{}

	assert.NotPanics(t, func() {
		log.DebugObj("m", "e", nil)
		log.InfoObj("m", "e", map[string]any{"k": "v"})
		log.WarnObj("m", "e", nil)
		log.ErrorObj("m", "e", nil)
	})
}
