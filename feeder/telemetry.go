package feeder

// telemetryGuard pauses telemetry while the load cell is polled and puts it back the way it was.
// Release only resumes telemetry that this guard paused, and it is safe to call more than once
type telemetryGuard struct {
	telemetry Telemetry
	paused    bool
}

func (g *telemetryGuard) Acquire() {
	if g.paused {
		return
	}
	if g.telemetry.Active() {
		g.telemetry.Pause()
		g.paused = true
	}
}

func (g *telemetryGuard) Release() {
	if !g.paused {
		return
	}
	g.telemetry.Resume()
	g.paused = false
}

// Suspended reports whether telemetry is currently held paused by the guard
func (g *telemetryGuard) Suspended() bool {
	return g.paused
}
