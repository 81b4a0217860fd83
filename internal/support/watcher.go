package support

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/notify"
	"github.com/vbonduro/propdesk/internal/store"
)

type ticketLister interface {
	Filter(ctx context.Context, q store.Query) ([]*domain.UserProblem, error)
}

// Watcher raises a critical notification for every open critical ticket it
// has not seen before. The first Check only records the tickets already
// open, so a restart does not repeat old alerts.
type Watcher struct {
	tickets  ticketLister
	notifier notify.Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	seen   map[string]bool
	primed bool
}

func NewWatcher(tickets ticketLister, notifier notify.Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{tickets: tickets, notifier: notifier, logger: logger, seen: make(map[string]bool)}
}

// Check is meant to be run by a poller.
func (w *Watcher) Check(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	open, err := w.tickets.Filter(ctx, store.Query{Where: map[string]any{
		"severity": string(domain.SeverityCritical),
		"status":   string(domain.StatusOpen),
	}})
	if err != nil {
		return fmt.Errorf("failed to list critical tickets: %w", err)
	}

	current := make(map[string]bool, len(open))
	var fresh []*domain.UserProblem
	for _, p := range open {
		current[p.ID] = true
		if !w.seen[p.ID] {
			fresh = append(fresh, p)
		}
	}
	// Tickets that left the open set are forgotten.
	w.seen = current

	if !w.primed {
		w.primed = true
		return nil
	}
	for _, p := range fresh {
		msg := notify.Message{
			Subject:  "Critical ticket: " + p.Title,
			Body:     p.Description,
			Critical: true,
		}
		if err := w.notifier.Notify(ctx, msg); err != nil {
			w.logger.Error("failed to send critical ticket alert", "ticket_id", p.ID, "error", err)
		}
	}
	return nil
}
