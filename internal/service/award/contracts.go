package award

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bedrock-cadence/transport-portal/internal/notify"
)

type notifier interface {
	Deliver(ctx context.Context, ns ...notify.Notification)
}

type outcomeCounter interface {
	WithLabelValues(lvs ...string) prometheus.Counter
}
