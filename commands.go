package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/mahlburgc/armterm/internal/controller"
	"github.com/mahlburgc/armterm/internal/server"
	"github.com/mahlburgc/armterm/internal/session"
	"github.com/mahlburgc/armterm/internal/styles"
	"github.com/mahlburgc/armterm/internal/tui"
)

var (
	picoStyle = lipgloss.NewStyle().Foreground(styles.AdaptiveGreen)
	dimStyle  = lipgloss.NewStyle().Foreground(styles.AdaptiveGray)
)

type RunCommand struct {
	NoConnect bool `long:"no-connect" description:"Start disconnected"`
	LogLines  int  `long:"log-lines" description:"Message log limit (default from config)"`
}

func (c *RunCommand) Execute(args []string) error {
	a, err := setup(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := a.newController()
	defer ctrl.Close()

	logLines := a.cfg.LogLines
	if c.LogLines > 0 {
		logLines = c.LogLines
	}

	return tui.Run(ctx, ctrl, tui.Options{
		Connect:   !c.NoConnect,
		Timestamp: a.cfg.Timestamp,
		Escapes:   opts.Escapes,
		SerialLog: a.traffic,
		LogLines:  logLines,
		Logger:    a.logger.With("component", "tui"),
	})
}

type ListCommand struct{}

// Print out a list of all available ports.
func (c *ListCommand) Execute(args []string) error {
	ports, err := session.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found!")
		return nil
	}

	for _, port := range ports {
		name := port.Name
		if port.IsPico() {
			name += " " + picoStyle.Render("(Raspberry Pi Pico)")
		}
		fmt.Printf("Found port: %s\n", name)
		if port.IsUSB {
			fmt.Printf("   USB ID     %s:%s\n", port.VID, port.PID)
			fmt.Printf("   USB serial %s\n", port.SerialNumber)
			if port.Product != "" {
				fmt.Printf("   Product    %s\n", dimStyle.Render(port.Product))
			}
		}
	}
	return nil
}

type PingCommand struct{}

func (c *PingCommand) Execute(args []string) error {
	a, err := setup(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port, err := a.opener().Open(ctx, a.cfg.Port, session.Mode())
	if err != nil {
		return fmt.Errorf("open %s: %w", a.cfg.Port, err)
	}
	defer port.Close()

	if err := session.Ping(ctx, port); err != nil {
		return fmt.Errorf("%s: %w", a.cfg.Port, err)
	}
	fmt.Printf("%s: %s\n", a.cfg.Port, picoStyle.Render("PONG"))
	return nil
}

type ServeCommand struct {
	Listen  string `short:"l" long:"listen" description:"Listen address (default from config)" value-name:"ADDR"`
	Connect bool   `long:"connect" description:"Open the serial port on start"`
}

func (c *ServeCommand) Execute(args []string) error {
	a, err := setup(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Listen
	if c.Listen != "" {
		addr = c.Listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := a.newController()
	defer ctrl.Close()

	if c.Connect {
		if err := ctrl.Update(ctx, controller.Connect{}); err != nil {
			a.logger.Warn("Failed to open serial port, use POST /api/connect to retry", "port", a.cfg.Port, "error", err)
		}
	}

	srv := server.New(ctrl, a.logger.With("component", "server"))
	a.logger.Info("Starting server", "addr", addr, "port", a.cfg.Port, "mock", opts.Mock)
	return srv.ListenAndServe(ctx, addr)
}
