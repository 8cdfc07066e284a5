package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/mahlburgc/armterm/internal/config"
	"github.com/mahlburgc/armterm/internal/controller"
	"github.com/mahlburgc/armterm/internal/logging"
	"github.com/mahlburgc/armterm/internal/mockport"
	"github.com/mahlburgc/armterm/internal/session"
)

type GlobalOptions struct {
	Port      string `short:"p" long:"port" description:"Serial port of the arm (default from config)" value-name:"PORT"`
	Auto      bool   `short:"a" long:"auto" description:"Use the first port that looks like a Raspberry Pi Pico"`
	Mock      bool   `long:"mock" description:"Talk to a simulated arm instead of a serial port"`
	Timestamp bool   `short:"t" long:"timestamp" description:"Show timestamps in the message log"`
	Escapes   bool   `short:"e" long:"escapes" description:"Show escape characters of received lines"`
	Config    string `short:"c" long:"config" description:"Config file (default ~/.config/armterm/config.json)" value-name:"FILE"`
	SerialLog string `long:"serial-log" description:"Append the message log to FILE" value-name:"FILE"`
	Debug     bool   `short:"d" long:"debug" description:"Enable debug logging"`
}

type Options struct {
	GlobalOptions `group:"Global Options"`

	Run   RunCommand   `command:"run" description:"Open the terminal UI (default)"`
	List  ListCommand  `command:"list" alias:"ls" description:"List serial ports and mark likely Pico boards"`
	Ping  PingCommand  `command:"ping" description:"Check the link to the arm with PING/PONG"`
	Serve ServeCommand `command:"serve" description:"Serve the HTTP API and WebSocket event stream"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "armterm - serial controller for a Pico driven robot arm"
	parser.SubcommandsOptional = true

	_, err := parser.Parse()
	if err == nil && parser.Active == nil {
		if err = opts.Run.Execute(nil); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// app holds what every command builds from the configuration and the
// global options.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	traffic *log.Logger
	closers []io.Closer
}

// setup loads the configuration, applies the global options on top and
// starts logging. A nil console keeps logs off the terminal.
func setup(console io.Writer) (*app, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}

	if err := applyFlags(cfg, opts.GlobalOptions, session.ListPorts); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	logger, closer, err := logging.Start(logging.Options{Console: console, Debug: opts.Debug})
	if err != nil {
		return nil, fmt.Errorf("start logging: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, closer)

	traffic, closer, err := logging.OpenTraffic(cfg.SerialLog)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open serial log: %w", err)
	}
	a.traffic = traffic
	a.closers = append(a.closers, closer)

	a.logger.Debug("configuration loaded", "port", cfg.Port, "joints", cfg.Joints, "mock", opts.Mock)
	return a, nil
}

func (a *app) opener() session.Opener {
	if opts.Mock {
		return &mockport.Opener{Joints: a.cfg.Joints}
	}
	return session.SerialOpener{}
}

func (a *app) newController() *controller.Controller {
	return controller.New(controller.Config{
		Joints:   a.cfg.Joints,
		Labels:   a.cfg.Labels,
		PortName: a.cfg.Port,
		Opener:   a.opener(),
		Cooldown: a.cfg.Cooldown,
		Logger:   a.logger.With("component", "controller"),
	})
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

// applyFlags puts the global options on top of the loaded configuration.
// Only options given on the command line override a value.
func applyFlags(cfg *config.Config, g GlobalOptions, list func() ([]session.PortInfo, error)) error {
	if g.Port != "" {
		cfg.Port = g.Port
	}
	if g.Timestamp {
		cfg.Timestamp = true
	}
	if g.SerialLog != "" {
		cfg.SerialLog = g.SerialLog
	}
	if g.Auto && !g.Mock {
		port, err := findPico(list)
		if err != nil {
			return err
		}
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func findPico(list func() ([]session.PortInfo, error)) (string, error) {
	ports, err := list()
	if err != nil {
		return "", err
	}
	p, ok := session.FindPico(ports)
	if !ok {
		return "", errors.New("no Raspberry Pi Pico found, use --port")
	}
	return p.Name, nil
}
