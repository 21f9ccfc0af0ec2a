package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	tests := []struct {
		name       string
		level      string
		wantLevel  zerolog.Level
		wantCaller bool
	}{
		{"info", "info", zerolog.InfoLevel, false},
		{"debug keeps caller", "debug", zerolog.DebugLevel, true},
		{"unknown falls back to info", "loud", zerolog.InfoLevel, false},
		{"empty falls back to info", "", zerolog.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(&buf, tt.level, "json")
			if got := zerolog.GlobalLevel(); got != tt.wantLevel {
				t.Fatalf("level = %s, want %s", got, tt.wantLevel)
			}

			log.Warn().Msg("hello")
			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("decode %q: %v", buf.String(), err)
			}
			if line["service"] != "lms-admin" {
				t.Fatalf("service = %v", line["service"])
			}
			if _, ok := line["caller"]; ok != tt.wantCaller {
				t.Fatalf("caller present = %v, want %v", ok, tt.wantCaller)
			}
		})
	}
}
