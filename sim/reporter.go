package sim

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/calvinmclean/autofeed"
	"github.com/calvinmclean/autofeed/feeder"
)

// LogReporter writes status lines the same way the firmware prints them and logs them
type LogReporter struct {
	out io.Writer
	log zerolog.Logger
}

var _ feeder.Reporter = LogReporter{}

func NewLogReporter(out io.Writer, log zerolog.Logger) LogReporter {
	return LogReporter{out: out, log: log}
}

func (r LogReporter) Report(line autofeed.StatusLine) {
	if r.out != nil {
		_, _ = io.WriteString(r.out, line.String()+"\r\n")
	}

	var event *zerolog.Event
	switch line.Kind {
	case autofeed.KindWarning, autofeed.KindRejected:
		event = r.log.Warn()
	case autofeed.KindAborted:
		event = r.log.Error()
	case autofeed.KindStage:
		event = r.log.Debug()
	default:
		event = r.log.Info()
	}
	event.Str("state", line.State.String()).Str("kind", string(line.Kind)).Msg(line.Message)
}
