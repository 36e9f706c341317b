package twchart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/calvinmclean/babyapi"
	"github.com/calvinmclean/twchart"
)

// ErrNoSession is returned when adding to a session before CreateSession
var ErrNoSession = errors.New("no session")

type Probes []twchart.Probe

// DefaultProbes maps the hopper load cell to the first chart probe
var DefaultProbes = Probes{{Name: "Hopper", Position: 1}}

// Client records feeding sequences as TWChart sessions. Each session gets a stage for every
// sequence state and an event for every warning or terminal outcome
type Client struct {
	client    *babyapi.Client[*session]
	sessionID string
}

type session struct {
	// include NilResource so we don't implement Render/Bind which are not needed
	*babyapi.NilResource
	twchart.Session
}

func (s session) GetID() string {
	return s.Session.GetID()
}

func NewClient(addr string) *Client {
	client := babyapi.NewClient[*session](addr, "/sessions")
	return &Client{client: client}
}

// CreateSession creates the session that following calls add to
func (c *Client) CreateSession(ctx context.Context, name string, probes Probes) (string, error) {
	if len(probes) == 0 {
		probes = DefaultProbes
	}

	resp, err := c.client.Post(ctx, &session{
		Session: twchart.Session{
			Name:   name,
			Date:   time.Now(),
			Probes: []twchart.Probe(probes),
		},
	})
	if err != nil {
		return "", fmt.Errorf("error creating session: %w", err)
	}

	c.sessionID = resp.Data.GetID()

	return c.sessionID, nil
}

func (c *Client) SetStartTime(ctx context.Context, startTime time.Time) error {
	_, err := c.client.Patch(ctx, c.sessionID, &session{Session: twchart.Session{
		StartTime: startTime,
	}})
	return err
}

func (c *Client) AddEvent(ctx context.Context, note string, now time.Time) error {
	return c.post(ctx, "/add-event", twchart.Event{Note: note, Time: now})
}

func (c *Client) AddStage(ctx context.Context, name string, now time.Time) error {
	return c.post(ctx, "/add-stage", twchart.Stage{Name: name, Start: now})
}

func (c *Client) Done(ctx context.Context, now time.Time) error {
	return c.post(ctx, "/done", map[string]any{"time": now})
}

func (c *Client) post(ctx context.Context, action string, body any) error {
	if c.sessionID == "" {
		return ErrNoSession
	}

	url, err := c.client.URL(c.sessionID)
	if err != nil {
		return fmt.Errorf("error creating URL: %w", err)
	}

	return c.makeRequest(ctx, url+action, body)
}

func (c *Client) makeRequest(ctx context.Context, url string, body any) error {
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding body: %w", err)
		}

		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := c.client.MakeGenericRequest(req, nil)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	if resp.Response.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status code: %d, response: %v", resp.Response.StatusCode, resp.Body)
	}

	return nil
}

// ParseProbes parses a string in the format "1=Name,2=Name,..." into twchart.Probes.
func ParseProbes(input string) (Probes, error) {
	var probes Probes
	entries := strings.SplitSeq(input, ",")
	for entry := range entries {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid probe entry: %q", entry)
		}
		posStr := strings.TrimSpace(parts[0])
		name := strings.TrimSpace(parts[1])

		var pos twchart.ProbePosition
		_, err := fmt.Sscanf(posStr, "%d", &pos)
		if err != nil || pos <= twchart.ProbePositionNone {
			return nil, fmt.Errorf("invalid probe position: %q", posStr)
		}
		probes = append(probes, twchart.Probe{Name: name, Position: pos})
	}
	return probes, nil
}
