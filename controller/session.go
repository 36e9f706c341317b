package controller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/calvinmclean/autofeed"
	"github.com/calvinmclean/autofeed/twchart"
)

const sessionTimeout = 5 * time.Second

type twchartClient interface {
	CreateSession(ctx context.Context, name string, probes twchart.Probes) (string, error)
	SetStartTime(ctx context.Context, startTime time.Time) error
	AddEvent(ctx context.Context, note string, now time.Time) error
	AddStage(ctx context.Context, name string, now time.Time) error
	Done(ctx context.Context, now time.Time) error
}

type noopTWChartClient struct{}

var _ twchartClient = noopTWChartClient{}

// AddEvent implements twchartClient.
func (n noopTWChartClient) AddEvent(context.Context, string, time.Time) error {
	return nil
}

// AddStage implements twchartClient.
func (n noopTWChartClient) AddStage(context.Context, string, time.Time) error {
	return nil
}

// CreateSession implements twchartClient.
func (n noopTWChartClient) CreateSession(context.Context, string, twchart.Probes) (string, error) {
	return "", nil
}

// Done implements twchartClient.
func (n noopTWChartClient) Done(context.Context, time.Time) error {
	return nil
}

// SetStartTime implements twchartClient.
func (n noopTWChartClient) SetStartTime(context.Context, time.Time) error {
	return nil
}

// sessionRecorder turns the status lines of each sequence into a TWChart session. A session starts
// when the gate starts extending and is done at the terminal status
type sessionRecorder struct {
	client twchartClient
	name   string
	probes twchart.Probes
	log    zerolog.Logger
	now    func() time.Time

	open bool
}

func (s *sessionRecorder) record(line autofeed.StatusLine) {
	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
	defer cancel()

	now := s.now()

	switch {
	case line.Kind == autofeed.KindStage && line.State == autofeed.StateExtendGate:
		name := s.name + " " + now.Format(time.DateTime)
		id, err := s.client.CreateSession(ctx, name, s.probes)
		if err != nil {
			s.log.Error().Err(err).Msg("error creating session")
			return
		}
		s.open = true
		s.log.Info().Str("session_id", id).Str("name", name).Msg("created session")

		s.check(s.client.SetStartTime(ctx, now), "setting start time")
		s.check(s.client.AddStage(ctx, line.State.String(), now), "adding stage")

	case !s.open:
		return

	case line.Kind == autofeed.KindStage:
		s.check(s.client.AddStage(ctx, line.State.String(), now), "adding stage")

	case line.Kind == autofeed.KindWarning:
		s.check(s.client.AddEvent(ctx, line.Message, now), "adding event")

	case line.Kind == autofeed.KindCompleted || line.Kind == autofeed.KindAborted:
		s.check(s.client.AddEvent(ctx, string(line.Kind)+": "+line.Message, now), "adding event")
		s.check(s.client.Done(ctx, now), "finishing session")
		s.open = false
	}
}

func (s *sessionRecorder) check(err error, action string) {
	if err != nil {
		s.log.Error().Err(err).Msgf("error %s", action)
	}
}
