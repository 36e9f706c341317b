package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"fyne.io/fyne/v2/app"

	"github.com/calvinmclean/autofeed/controller"
	"github.com/calvinmclean/autofeed/internal/log"
	"github.com/calvinmclean/autofeed/ui"
)

func main() {
	cfg := controller.ConfigFromEnv()

	var logLevel string
	enableUI, _ := strconv.ParseBool(os.Getenv("ENABLE_UI"))
	flag.StringVar(&cfg.SerialPort, "port", cfg.SerialPort, "Serial port of the feeder. Default is the first USB serial port, \""+controller.SerialPortNone+"\" simulates")
	flag.StringVar(&cfg.SessionName, "session", cfg.SessionName, "Session name for TWChart")
	flag.StringVar(&cfg.TWChartAddr, "twchart", cfg.TWChartAddr, "TWChart address. Sessions are not recorded if it is empty")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Address to serve /metrics, /status and feeding endpoints on")
	flag.StringVar(&cfg.ProfilesFile, "profiles", cfg.ProfilesFile, "YAML file with feeding profiles")
	flag.BoolVar(&cfg.Simulate, "simulate", cfg.Simulate, "Run against a simulated feeder")
	flag.BoolVar(&enableUI, "ui", enableUI, "Show the desktop panel")
	flag.StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "Log level")
	flag.Parse()

	log.Configure(log.Config{Level: logLevel, Console: true})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if enableUI {
		runUI(ctx, cfg)
		return
	}

	runCLI(ctx, cfg)
}

func runUI(ctx context.Context, cfg controller.Config) {
	logger := log.WithComponent("ui")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	application := app.NewWithID(ui.AppID)

	configWindow := ui.NewConfigWindow(application)
	configWindow.OnSubmit = func() error {
		c, err := controller.New(cfg)
		if err != nil {
			return err
		}

		r, w := io.Pipe()

		// read from Stdin also
		go func() {
			_, _ = io.Copy(w, os.Stdin)
		}()

		var profiles []string
		for _, p := range c.Profiles() {
			profiles = append(profiles, p.Name)
		}
		feederUI := ui.NewFeederUI(application, profiles)

		go func() {
			defer c.Close()
			err := c.Run(ctx, r, io.MultiWriter(os.Stdout, feederUI))
			if err != nil {
				logger.Error().Err(err).Msg("controller stopped")
				cancel()
			}
		}()

		feederUI.Show(ctx, w)
		return nil
	}
	configWindow.Show(&cfg)

	application.Run()
}

func runCLI(ctx context.Context, cfg controller.Config) {
	logger := log.WithComponent("cli")

	c, err := controller.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("error creating controller")
	}
	defer c.Close()

	err = c.Run(ctx, os.Stdin, os.Stdout)
	if err != nil {
		logger.Error().Err(err).Msg("controller stopped")
	}
}
