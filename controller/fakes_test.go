package controller

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calvinmclean/autofeed/twchart"
)

// fakeLink is a feeder that prints whatever the test tells it to and records commands
type fakeLink struct {
	*io.PipeReader
	feeder *io.PipeWriter

	mtx     sync.Mutex
	written bytes.Buffer
}

func newFakeLink() *fakeLink {
	r, w := io.Pipe()
	return &fakeLink{PipeReader: r, feeder: w}
}

func (f *fakeLink) Write(p []byte) (int, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.written.Write(p)
}

func (f *fakeLink) Close() error {
	return f.PipeReader.Close()
}

func (f *fakeLink) print(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		_, err := io.WriteString(f.feeder, line+"\r\n")
		require.NoError(t, err)
	}
}

func (f *fakeLink) commands() []string {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return strings.Fields(f.written.String())
}

type lockedBuffer struct {
	mtx sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.String()
}

type fakeTWChart struct {
	mtx   sync.Mutex
	calls []string
	err   error
}

var _ twchartClient = &fakeTWChart{}

func (f *fakeTWChart) record(call string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeTWChart) Calls() []string {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]string{}, f.calls...)
}

func (f *fakeTWChart) CreateSession(_ context.Context, name string, _ twchart.Probes) (string, error) {
	return "session-1", f.record("create:" + name)
}

func (f *fakeTWChart) SetStartTime(context.Context, time.Time) error {
	return f.record("start")
}

func (f *fakeTWChart) AddEvent(_ context.Context, note string, _ time.Time) error {
	return f.record("event:" + note)
}

func (f *fakeTWChart) AddStage(_ context.Context, name string, _ time.Time) error {
	return f.record("stage:" + name)
}

func (f *fakeTWChart) Done(context.Context, time.Time) error {
	return f.record("done")
}

// feedingLines is the output of a sequence that hit the weight timeout and then completed
var feedingLines = []string{
	"FEEDER Idle info starting sequence: target 50.0g tolerance 5.0g",
	"FEEDER ExtendGate stage extending gate for 5s",
	"SENSORS weight=1520.3g",
	"FEEDER DoseWaitForWeight stage waiting for 50.0g reduction, max 30s",
	"FEEDER DoseWaitForWeight warn weight target not reached after 30.1s, measured 12.0g",
	"FEEDER RetractGate stage retracting gate for 5s",
	"FEEDER DoseAndAerate stage dosing for 6s, aerating for 5s",
	"FEEDER Idle completed sequence completed in 46.6s with 1 warning(s)",
	"stop requested",
}
