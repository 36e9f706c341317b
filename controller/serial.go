package controller

import (
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialPortNone is selected when there is no feeder attached. It runs the simulator
const SerialPortNone = "None"

var ErrNoUSBSerial = errors.New("no USB serial ports found")

// GetSerialPorts lists USB serial ports, which is how the feeder board shows up
func GetSerialPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}

	var result []string
	for _, port := range ports {
		if port.IsUSB {
			result = append(result, port.Name)
		}
	}
	if len(result) == 0 {
		return nil, ErrNoUSBSerial
	}

	return result, nil
}

// openSerial opens the port, or the first USB serial port if it is empty
func openSerial(port string, baudRate int) (io.ReadWriteCloser, error) {
	if port == "" {
		ports, err := GetSerialPorts()
		if err != nil {
			return nil, err
		}
		port = ports[0]
	}

	p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %q: %w", port, err)
	}

	return p, nil
}
