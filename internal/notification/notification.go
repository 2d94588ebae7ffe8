package notification

import (
	"context"
	"log/slog"
)

// Kind classifies a notification event.
type Kind string

const (
	// KindTransferCompleted indicates funds landed in the recipient's account.
	KindTransferCompleted Kind = "transfer_completed"
	// KindDepositReceived indicates a cash-in was credited.
	KindDepositReceived Kind = "deposit_received"
)

// Message describes a notification payload addressed to an account owner.
type Message struct {
	Kind        Kind
	Destination string
	Amount      int64
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured log. It stands in
// for a real delivery channel (email, push) in development and tests.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", string(message.Kind),
		"destination", message.Destination,
		"amount", message.Amount,
		"body", message.Body,
	)
	return nil
}
