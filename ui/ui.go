package ui

import (
	"bytes"
	"context"
	"image/color"
	"io"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/autofeed"
)

const maxLogLines = 200

// AppID identifies the application for fyne preferences
const AppID = "com.calvinmclean.autofeed"

// FeederUI is a desktop panel for a feeder. Output from controller.Run is written to it so it can
// follow the running sequence
type FeederUI struct {
	app      fyne.App
	profiles []string

	mtx     sync.Mutex
	partial bytes.Buffer
	lines   chan string
}

func NewFeederUI(app fyne.App, profiles []string) *FeederUI {
	return &FeederUI{
		app:      app,
		profiles: profiles,
		lines:    make(chan string, 100),
	}
}

// Write receives feeder output. Complete lines are shown in the panel and incomplete lines are held
// until the rest arrives. Lines are dropped if the panel falls behind
func (ui *FeederUI) Write(p []byte) (int, error) {
	ui.mtx.Lock()
	defer ui.mtx.Unlock()

	ui.partial.Write(p)
	for {
		line, err := ui.partial.ReadString('\n')
		if err != nil {
			// put back the incomplete line
			rest := []byte(line)
			ui.partial.Reset()
			ui.partial.Write(rest)
			break
		}

		select {
		case ui.lines <- strings.TrimRight(line, "\r\n"):
		default:
		}
	}

	return len(p), nil
}

// Show opens the panel. Closing it quits the application, and so does the context being done.
// Commands are written to w
func (ui *FeederUI) Show(ctx context.Context, w io.Writer) {
	window := ui.app.NewWindow("Auto Feed")
	window.SetMaster()

	c := &controllerWrapper{writer: w}

	sequenceTimer := newTimer(false)
	stageTimer := newTimer(true)
	sequenceTimer.Go()
	stageTimer.Go()
	window.SetOnClosed(func() {
		sequenceTimer.Close()
		stageTimer.Close()
	})

	stateText := canvas.NewText(stageFor(autofeed.StateIdle).label, nil)
	stateText.TextSize = 24
	stateText.TextStyle = fyne.TextStyle{Bold: true}
	progress := widget.NewProgressBar()
	weightLabel := widget.NewLabel("Hopper: -")

	logContent := widget.NewLabel("")
	logContent.Wrapping = fyne.TextWrapWord
	logScroll := container.NewVScroll(logContent)
	logScroll.SetMinSize(fyne.NewSize(400, 150))
	var logLines []string

	stopButton := widget.NewButton("Stop", c.Stop)
	stopButton.Importance = widget.DangerImportance
	stopButton.Disable()

	profileSelect := widget.NewSelect(ui.profiles, nil)
	if len(ui.profiles) > 0 {
		profileSelect.SetSelected(ui.profiles[0])
	}
	feedButton := widget.NewButton("Feed", func() {
		if profileSelect.Selected != "" {
			c.Feed(profileSelect.Selected)
		}
	})

	gramsEntry := widget.NewEntry()
	gramsEntry.SetPlaceHolder("grams")
	motorEntry := widget.NewEntry()
	motorEntry.SetPlaceHolder("motor s")
	blowerEntry := widget.NewEntry()
	blowerEntry.SetPlaceHolder("blower s")
	startButton := widget.NewButton("Start", func() {
		err := c.Start(gramsEntry.Text, motorEntry.Text, blowerEntry.Text)
		if err != nil {
			dialog.ShowError(err, window)
		}
	})

	manualButtons := container.NewGridWithColumns(3)
	for _, cmd := range []struct{ label, cmd string }{
		{"Gate Up", "actuator:up"},
		{"Gate Down", "actuator:down"},
		{"Gate Stop", "actuator:stop"},
		{"Auger Forward", "auger:forward"},
		{"Auger Reverse", "auger:reverse"},
		{"Auger Stop", "auger:stop"},
		{"Blower On", "blower:on"},
		{"Blower Off", "blower:off"},
		{"Status", "feeder:status"},
	} {
		manualButtons.Add(widget.NewButton(cmd.label, func() { c.Manual(cmd.cmd) }))
	}

	setRunning := func(running bool) {
		if running {
			stopButton.Enable()
			feedButton.Disable()
			startButton.Disable()
			return
		}
		stopButton.Disable()
		feedButton.Enable()
		startButton.Enable()
	}

	handleStatus := func(s autofeed.StatusLine) {
		now := time.Now()
		switch {
		case s.Kind == autofeed.KindStage:
			if s.State == autofeed.StateExtendGate {
				sequenceTimer.Start(now)
			}
			stageTimer.Start(now)
			setRunning(true)
			st := stageFor(s.State)
			stateText.Text = st.label
			stateText.Color = nil
			progress.SetValue(st.progress)
		case s.Kind == autofeed.KindWarning:
			stateText.Color = color.RGBA{R: 204, G: 120, B: 0, A: 255}
		case s.Kind.Terminal() && s.Kind != autofeed.KindRejected:
			sequenceTimer.Reset()
			stageTimer.Reset()
			setRunning(false)
			stateText.Text = outcomeLabel(s.Kind)
			progress.SetValue(1)
			if s.Kind == autofeed.KindAborted {
				stateText.Color = color.RGBA{R: 139, G: 0, B: 0, A: 255}
			}
		}
		stateText.Refresh()
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				fyne.Do(ui.app.Quit)
				return
			case line := <-ui.lines:
				fyne.Do(func() {
					logLines = append(logLines, line)
					if len(logLines) > maxLogLines {
						logLines = logLines[len(logLines)-maxLogLines:]
					}
					logContent.SetText(strings.Join(logLines, "\n"))
					logScroll.ScrollToBottom()

					if s, ok := autofeed.ParseStatusLine(line); ok {
						handleStatus(s)
						return
					}
					if grams, ok := telemetryWeight(line); ok {
						weightLabel.SetText("Hopper: " + grams)
					}
				})
			}
		}
	}()

	content := container.NewVBox(
		container.NewHBox(
			container.NewPadded(sequenceTimer.text),
			layout.NewSpacer(),
			container.NewPadded(stageTimer.text),
		),
		container.NewCenter(stateText),
		progress,
		weightLabel,
		widget.NewCard("Feed", "", container.NewVBox(
			container.NewGridWithColumns(2, profileSelect, feedButton),
			container.NewGridWithColumns(4, gramsEntry, motorEntry, blowerEntry, startButton),
		)),
		stopButton,
		widget.NewAccordion(
			widget.NewAccordionItem("Manual", manualButtons),
			widget.NewAccordionItem("Logs", logScroll),
		),
	)

	window.SetContent(content)
	window.Resize(fyne.NewSize(420, 360))
	window.Show()
}

// telemetryWeight finds the weight in a "SENSORS weight=1520.3g" line
func telemetryWeight(line string) (string, bool) {
	if !strings.HasPrefix(line, "SENSORS ") {
		return "", false
	}
	for _, field := range strings.Fields(line) {
		if v, ok := strings.CutPrefix(field, "weight="); ok && v != "err" {
			return v, true
		}
	}
	return "", false
}
