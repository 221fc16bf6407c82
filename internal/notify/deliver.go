package notify

import (
	"context"
	"fmt"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
)

// Sender fans notifications out after a transition has committed and swallows failures.
type Sender struct {
	d        Dispatcher
	logger   logx.Logger
	failures counter
}

// NewSender returns a Sender. A nil dispatcher drops everything.
func NewSender(d Dispatcher, logger logx.Logger, failures counter) *Sender {
	if d == nil {
		d = Nop()
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Sender{d: d, logger: logger, failures: failures}
}

// Deliver sends every notification. Failures are logged and counted, never returned.
func (s *Sender) Deliver(ctx context.Context, ns ...Notification) {
	if s == nil {
		return
	}
	for _, n := range ns {
		if err := s.d.Send(ctx, n); err != nil {
			if s.failures != nil {
				s.failures.Inc()
			}
			s.logger.Warn("notification dropped",
				logx.String("event", string(n.Event)),
				logx.Int64("user_id", n.UserID),
				logx.Err(fmt.Errorf("%w: %w", apperr.ErrNotification, err)),
			)
		}
	}
}

// ToUsers builds the same notification for every recipient.
func ToUsers(userIDs []int64, event Event, message, link string) []Notification {
	out := make([]Notification, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, Notification{UserID: id, Event: event, Message: message, Link: link})
	}
	return out
}
