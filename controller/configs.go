package controller

import (
	"os"
	"strconv"
)

const defaultBaudRate = 115200

// Config has everything needed to connect to a feeder
type Config struct {
	SerialPort  string
	BaudRate    string
	TWChartAddr string
	SessionName string
	ProbesInput string
	// MetricsAddr is where /metrics, /status and the feed endpoints are served. Empty disables HTTP
	MetricsAddr  string
	ProfilesFile string
	// Simulate runs the feeder logic in-process against a simulated hopper instead of a serial port
	Simulate bool
}

// ConfigFromEnv reads the Config from environment variables
func ConfigFromEnv() Config {
	simulate, _ := strconv.ParseBool(os.Getenv("SIMULATE"))
	return Config{
		SerialPort:   os.Getenv("SERIAL_PORT"),
		BaudRate:     os.Getenv("BAUD_RATE"),
		TWChartAddr:  os.Getenv("TWCHART_ADDR"),
		SessionName:  os.Getenv("SESSION_NAME"),
		ProbesInput:  os.Getenv("PROBES"),
		MetricsAddr:  os.Getenv("METRICS_ADDR"),
		ProfilesFile: os.Getenv("PROFILES_FILE"),
		Simulate:     simulate,
	}
}

func (c Config) baudRate() (int, error) {
	if c.BaudRate == "" {
		return defaultBaudRate, nil
	}
	return strconv.Atoi(c.BaudRate)
}

func (c Config) sessionName() string {
	if c.SessionName == "" {
		return "Feeding"
	}
	return c.SessionName
}
