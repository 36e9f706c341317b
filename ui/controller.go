package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/calvinmclean/autofeed"
)

// controllerWrapper writes input lines for controller.Run
type controllerWrapper struct {
	writer io.Writer
}

func (c *controllerWrapper) Feed(profile string) {
	fmt.Fprintf(c.writer, "feed %s\n", profile)
}

// Start runs a custom dose. Empty blower runs it as long as the motor
func (c *controllerWrapper) Start(grams, motor, blower string) error {
	cmd, err := startCommand(grams, motor, blower)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.writer, cmd)
	return nil
}

func (c *controllerWrapper) Stop() {
	fmt.Fprintln(c.writer, "stop")
}

func (c *controllerWrapper) Manual(cmd string) {
	fmt.Fprintln(c.writer, autofeed.CommandPrefix+cmd)
}

func startCommand(grams, motor, blower string) (string, error) {
	args := []string{strings.TrimSpace(grams), strings.TrimSpace(motor)}
	if b := strings.TrimSpace(blower); b != "" {
		args = append(args, b)
	}

	for i, name := range []string{"grams", "motor seconds", "blower seconds"}[:len(args)] {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil || v <= 0 {
			return "", fmt.Errorf("invalid %s: %q", name, args[i])
		}
	}

	return autofeed.CommandPrefix + "feeder:start:" + strings.Join(args, ","), nil
}
