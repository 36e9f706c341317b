package ui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// timer shows the time since it was last started. It shows zero while stopped
type timer struct {
	showMillis bool
	startTime  time.Time
	mtx        *sync.Mutex
	text       *canvas.Text
	done       chan struct{}
	closeOnce  sync.Once
}

func newTimer(showMillis bool) *timer {
	t := &timer{
		showMillis: showMillis,
		mtx:        &sync.Mutex{},
		done:       make(chan struct{}),
	}
	t.text = canvas.NewText(t.format(0), nil)
	return t
}

// Start restarts the timer from now
func (t *timer) Start(now time.Time) {
	t.mtx.Lock()
	t.startTime = now
	t.mtx.Unlock()
}

// Reset stops counting and shows zero
func (t *timer) Reset() {
	t.mtx.Lock()
	t.startTime = time.Time{}
	t.mtx.Unlock()
}

// Close stops refreshing
func (t *timer) Close() {
	t.closeOnce.Do(func() { close(t.done) })
}

func (t *timer) Go() {
	d := time.Second
	if t.showMillis {
		d = 64 * time.Millisecond
	}

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
			}

			fyne.Do(func() {
				t.mtx.Lock()
				var elapsed time.Duration
				if !t.startTime.IsZero() {
					elapsed = time.Since(t.startTime)
				}
				t.mtx.Unlock()

				t.text.Text = t.format(elapsed)
				t.text.Refresh()
			})
		}
	}()
}

func (t *timer) format(elapsed time.Duration) string {
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60
	if t.showMillis {
		millis := int(elapsed.Milliseconds()) % 1000
		return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
