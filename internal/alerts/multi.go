package alerts

import (
	"context"
	"errors"
	"fmt"
)

// MultiSender sends alerts to multiple destinations
type MultiSender struct {
	senders []Sender
}

// NewMultiSender creates a new multi-sender
func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{
		senders: senders,
	}
}

// Send sends the alert to all configured senders. Every sender is tried even
// when an earlier one fails.
func (s *MultiSender) Send(ctx context.Context, alert *AlphaAlert) error {
	var errs []error
	for i, sender := range s.senders {
		if err := sender.Send(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("sender %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
