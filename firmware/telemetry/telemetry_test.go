package telemetry

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTick(t *testing.T) {
	var out bytes.Buffer
	weight := float32(1520.3)
	s := New(&out, time.Second,
		Source{Name: "weight", Unit: "g", Read: func() (float32, bool) { return weight, true }},
		Source{Name: "water", Unit: "C", Read: func() (float32, bool) { return 0, false }},
	)

	start := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)

	assert.True(t, s.Tick(start))
	assert.False(t, s.Tick(start.Add(500*time.Millisecond)))
	weight = 1500
	assert.True(t, s.Tick(start.Add(time.Second)))

	assert.Equal(t, "SENSORS weight=1520.3g water=err\r\nSENSORS weight=1500.0g water=err\r\n", out.String())
}

func TestPauseResume(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		pause    bool
		resume   bool
		expected bool
	}{
		{"Enabled", true, false, false, true},
		{"Paused", true, true, false, false},
		{"Resumed", true, true, true, true},
		{"DisabledStaysOffAfterResume", false, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			s := New(&out, time.Second)
			s.Enable(tt.enabled)
			if tt.pause {
				s.Pause()
			}
			if tt.resume {
				s.Resume()
			}

			assert.Equal(t, tt.expected, s.Active())
			assert.Equal(t, tt.expected, s.Tick(time.Now()))
		})
	}
}
