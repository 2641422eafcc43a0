package ui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/synq/internal/remote"
	"github.com/five82/synq/internal/store"
	"github.com/five82/synq/internal/synq"
)

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	if opts.Store == nil {
		return errors.New("ui requires a todo store")
	}

	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Store listeners run on the goroutine that mutated the store, so they
	// hand results to the program instead of touching the model.
	unsubscribe := opts.Store.Subscribe(func(s *store.Snapshot[remote.Todo]) {
		p.Send(snapshotMsg{items: s.Items()})
	})
	defer unsubscribe()
	unsubscribeStatus := opts.Store.SubscribeStatus(func(status synq.Status) {
		p.Send(statusMsg(status))
	})
	defer unsubscribeStatus()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-m.ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	_, err := p.Run()
	return err
}
