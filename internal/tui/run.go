package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mahlburgc/armterm/internal/controller"
)

type Options struct {
	// Connect opens the selected port right after start.
	Connect   bool
	Timestamp bool
	Escapes   bool
	// SerialLog receives every logged line when not nil.
	SerialLog *log.Logger
	LogLines  int
	Logger    *slog.Logger
}

// Run shows the terminal UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl *controller.Controller, opts Options) error {
	zone.NewGlobal()

	b := &bridge{}
	detach := ctrl.Attach(b)
	defer detach()

	m := newModel(ctx, ctrl, opts)

	for {
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
		b.set(p)
		finalModel, err := p.Run()
		b.set(nil)
		if err != nil {
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("run tui: %w", err)
		}

		var ok bool
		m, ok = finalModel.(model)
		if !ok {
			return errors.New("could not cast final model to model type")
		}

		if !m.restartApp {
			return nil
		}
		m.restartApp = false
		m.connectOnStart = false
	}
}
