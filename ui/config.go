package ui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/autofeed/controller"
)

type ConfigWindow struct {
	app fyne.App
	// OnSubmit is called with the submitted config. The window stays open if it fails
	OnSubmit func() error
}

func NewConfigWindow(app fyne.App) *ConfigWindow {
	return &ConfigWindow{
		app: app,
	}
}

// loadConfigFromPreferences fills in fields that are not already set from the environment
func (cw *ConfigWindow) loadConfigFromPreferences(cfg *controller.Config) {
	prefs := cw.app.Preferences()
	fallback := func(current *string, key, def string) {
		if *current == "" {
			*current = prefs.StringWithFallback(key, def)
		}
	}
	fallback(&cfg.SerialPort, "serialPort", "")
	fallback(&cfg.BaudRate, "baudRate", "115200")
	fallback(&cfg.TWChartAddr, "twchartAddr", "")
	fallback(&cfg.SessionName, "sessionName", "Feeding")
	fallback(&cfg.ProbesInput, "probesInput", "1=Hopper")
	fallback(&cfg.MetricsAddr, "metricsAddr", "")
	fallback(&cfg.ProfilesFile, "profilesFile", "")
}

func (cw *ConfigWindow) saveConfigToPreferences(cfg *controller.Config) {
	prefs := cw.app.Preferences()
	prefs.SetString("serialPort", cfg.SerialPort)
	prefs.SetString("baudRate", cfg.BaudRate)
	prefs.SetString("twchartAddr", cfg.TWChartAddr)
	prefs.SetString("sessionName", cfg.SessionName)
	prefs.SetString("probesInput", cfg.ProbesInput)
	prefs.SetString("metricsAddr", cfg.MetricsAddr)
	prefs.SetString("profilesFile", cfg.ProfilesFile)
}

func (cw *ConfigWindow) Show(cfg *controller.Config) {
	window := cw.app.NewWindow("Auto Feed - Configuration")
	window.Resize(fyne.NewSize(400, 300))
	window.SetCloseIntercept(func() {
		// Treat window close as cancel
		window.Close()
		cw.app.Quit()
	})
	window.Show()

	cw.loadConfigFromPreferences(cfg)

	serialPorts, err := controller.GetSerialPorts()
	if err != nil && !errors.Is(err, controller.ErrNoUSBSerial) {
		showError(cw.app, window, fmt.Errorf("error getting serial ports: %w", err))
		return
	}

	serialPorts = append(serialPorts, controller.SerialPortNone)

	serialEntry := widget.NewSelect(serialPorts, nil)
	if cfg.SerialPort == "" {
		cfg.SerialPort = serialPorts[0]
	}
	serialEntry.Bind(binding.BindString(&cfg.SerialPort))

	entry := func(value *string, placeholder string) *widget.Entry {
		e := widget.NewEntry()
		e.SetPlaceHolder(placeholder)
		e.Bind(binding.BindString(value))
		return e
	}
	baudRateEntry := entry(&cfg.BaudRate, "115200")
	twchartAddrEntry := entry(&cfg.TWChartAddr, "optional")
	sessionEntry := entry(&cfg.SessionName, "Feeding")
	probesEntry := entry(&cfg.ProbesInput, "1=Hopper")
	metricsEntry := entry(&cfg.MetricsAddr, "optional, like :9090")
	profilesEntry := entry(&cfg.ProfilesFile, "optional profiles.yaml")

	submitButton := widget.NewButton("Submit", func() {
		cw.saveConfigToPreferences(cfg)
		err := cw.OnSubmit()
		if err != nil {
			dialog.ShowError(err, window)
			return
		}
		window.Close()
	})
	submitButton.Disable()

	validateForm := func() {
		if cfg.SerialPort != "" && cfg.BaudRate != "" && cfg.SessionName != "" {
			submitButton.Enable()
			return
		}
		submitButton.Disable()
	}

	// Add listeners to the required fields
	serialEntry.OnChanged = func(_ string) { validateForm() }
	baudRateEntry.OnChanged = func(_ string) { validateForm() }
	sessionEntry.OnChanged = func(_ string) { validateForm() }

	// Initial validation
	validateForm()

	row := func(label string, w fyne.CanvasObject) *fyne.Container {
		return container.NewGridWithColumns(2, widget.NewLabel(label), w)
	}

	form := container.NewVBox(
		widget.NewCard("Configuration", "", container.NewVBox(
			row("Serial Port:", serialEntry),
			row("Baud Rate:", baudRateEntry),
			row("TWChart Address:", twchartAddrEntry),
			row("Session Name:", sessionEntry),
			row("Probes Input:", probesEntry),
			row("Metrics Address:", metricsEntry),
			row("Profiles File:", profilesEntry),
		)),
		container.NewHBox(
			widget.NewButton("Cancel", func() {
				window.Close()
				cw.app.Quit()
			}),
			submitButton,
		),
	)

	window.SetContent(form)
}

func showError(app fyne.App, window fyne.Window, err error) {
	d := dialog.NewError(err, window)
	d.SetOnClosed(func() {
		app.Quit()
	})
	d.Show()
}
