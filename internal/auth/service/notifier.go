package service

import (
	"context"
	"log/slog"

	"github.com/relooptech/reloop/pkg/slogx"
)

// Event identifies an account state transition worth telling someone
// about.
type Event string

const (
	EventAccountRegistered Event = "account_registered"
	EventAccountApproved   Event = "account_approved"
	EventAccountRejected   Event = "account_rejected"
	EventAccountLocked     Event = "account_locked"
	EventAccountDeleted    Event = "account_deleted"
)

// Notifier delivers account lifecycle notifications. Delivery is
// best-effort: implementations must not block the caller and a failed
// delivery never fails the auth operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, accountID string, event Event, payload map[string]any)
}

// LogNotifier writes notifications to the structured log. It stands in
// until a mail transport is wired up and doubles as the audit trail for
// deletions.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, accountID string, event Event, payload map[string]any) {
	slogx.FromContext(ctx).Info("account notification",
		slog.String("account_id", accountID),
		slog.String("event", string(event)),
		slog.Any("payload", payload),
	)
}
