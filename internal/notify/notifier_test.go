package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures everything sent to it.
type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	if s.err != nil {
		return s.err
	}
	s.titles = append(s.titles, title)
	return nil
}

func (s *recordingSender) Name() string { return s.name }

func TestNotifyFiltersEvents(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []string{EventFuturesListed}, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Notify(context.Background(), EventFuturesListed, "listed", "body"))
	require.NoError(t, n.Notify(context.Background(), EventReconcileFailed, "failed", "body"))

	assert.Equal(t, []string{"listed"}, sender.titles)
}

func TestNotifyEmptyFilterAllowsEverything(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Notify(context.Background(), EventError, "anything", "body"))
	assert.Len(t, sender.titles, 1)
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	broken := &recordingSender{name: "broken", err: errors.New("webhook 500")}
	healthy := &recordingSender{name: "healthy"}
	n := NewNotifier([]Sender{broken, healthy}, nil, slog.New(slog.DiscardHandler))

	err := n.Notify(context.Background(), EventError, "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Len(t, healthy.titles, 1)
}

func TestNotifyNoSendersIsANoop(t *testing.T) {
	n := NewNotifier(nil, nil, slog.New(slog.DiscardHandler))
	assert.NoError(t, n.Notify(context.Background(), EventError, "title", "body"))
}
