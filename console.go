package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"i4.energy/across/sim868/at"
	"i4.energy/across/sim868/modem"
)

// Console is an interactive AT terminal. Every input line is sent to the
// modem as a command expecting OK and the reply is printed.
type Console struct {
	Logger *slog.Logger
	Modem  *modem.Modem
	In     io.Reader
	Out    io.Writer
}

const consolePrompt = "Please input the AT command, press Ctrl+C to exit: "

// Run reads commands until the input ends or ctx is canceled. Cancellation
// is the operator's way out: the modem is powered off before Run returns.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	fmt.Fprintln(c.Out, "--------------------------- SIM868 AT console ---------------------------")
	for {
		fmt.Fprint(c.Out, consolePrompt)

		select {
		case <-ctx.Done():
			fmt.Fprintln(c.Out, "\nExit AT command console")
			if err := c.Modem.PowerOff(context.WithoutCancel(ctx)); err != nil {
				c.Logger.Error("Failed to power off modem", "error", err)
				return err
			}
			fmt.Fprintln(c.Out, "Modem powered off")
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.Out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			c.exec(strings.TrimSpace(line))
		}
	}
}

func (c *Console) exec(line string) {
	if line == "" {
		return
	}

	res := c.Modem.Exec(at.Cmd(line))
	switch {
	case res.Err != nil:
		fmt.Fprintf(c.Out, "%s failed: %v\n", line, res.Err)
	case res.Outcome == modem.Empty:
		fmt.Fprintf(c.Out, "%s no response\n", line)
	case res.Outcome == modem.Unmatched:
		fmt.Fprintf(c.Out, "%s back:\t%s\n", line, res.Text())
	default:
		fmt.Fprintln(c.Out, res.Text())
	}
}
