package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/bedrock-cadence/transport-portal/internal/config"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
)

// notifyBackend is the configured dispatcher and the func releasing its connections.
type notifyBackend struct {
	name       string
	dispatcher notify.Dispatcher
	close      func() error
}

func (b *notifyBackend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

var (
	dialAMQP         = notify.DialAMQP
	newKafkaProducer = notify.NewKafkaProducer
)

func newNotifyBackend(cfg *config.Config, logger logx.Logger) (*notifyBackend, error) {
	switch cfg.Notify.Backend {
	case config.NotifyKafka:
		producer, err := newKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		d := notify.NewKafkaDispatcher(producer, cfg.Kafka.NotifyTopic)
		logger.Info("notifications go to kafka", logx.String("topic", cfg.Kafka.NotifyTopic))
		return &notifyBackend{name: config.NotifyKafka, dispatcher: d, close: d.Close}, nil

	case config.NotifyAMQP:
		conn, ch, err := dialAMQP(cfg.AMQP.URL)
		if err != nil {
			return nil, err
		}
		d, err := notify.NewAMQPDispatcher(ch, cfg.AMQP.Exchange)
		if err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
		logger.Info("notifications go to amqp", logx.String("exchange", cfg.AMQP.Exchange))
		return &notifyBackend{
			name:       config.NotifyAMQP,
			dispatcher: d,
			close:      func() error { return errors.Join(d.Close(), conn.Close()) },
		}, nil

	default:
		logger.Warn("notifications disabled", logx.String("backend", cfg.Notify.Backend))
		return &notifyBackend{name: config.NotifyNone, dispatcher: notify.Nop()}, nil
	}
}

type senderIn struct {
	dig.In

	Config   *config.Config
	Logger   logx.Logger
	Backend  *notifyBackend
	Retries  prometheus.Counter `name:"notify_retries_total"`
	Failures prometheus.Counter `name:"notify_failures_total"`
}

func newSender(in senderIn) *notify.Sender {
	retrying := notify.NewRetrying(in.Backend.dispatcher, in.Logger, in.Retries, notify.RetryConfig{
		MaxAttempts: in.Config.Notify.MaxAttempts,
		BaseDelay:   in.Config.Notify.BaseDelay,
		MaxDelay:    in.Config.Notify.MaxDelay,
	})
	return notify.NewSender(retrying, in.Logger, in.Failures)
}

func registerNotify(container *dig.Container) error {
	return provideAll(container,
		newNotifyBackend,
		newSender,
	)
}
