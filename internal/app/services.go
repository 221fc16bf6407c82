package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/bedrock-cadence/transport-portal/internal/clock"
	"github.com/bedrock-cadence/transport-portal/internal/config"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
	"github.com/bedrock-cadence/transport-portal/internal/phi"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/award"
	"github.com/bedrock-cadence/transport-portal/internal/service/changereq"
	"github.com/bedrock-cadence/transport-portal/internal/service/trips"
)

func newCipher(cfg *config.Config) (*phi.XChaCha, error) {
	key, err := cfg.PHI.Key()
	if err != nil {
		return nil, err
	}
	return phi.NewXChaCha(key)
}

type serviceIn struct {
	dig.In

	Config *config.Config
	Logger logx.Logger
	Clock  clock.Clock
	Runner triptx.Runner
	Cipher *phi.XChaCha
	Sender *notify.Sender
}

func newTripService(in serviceIn) *trips.Service {
	return trips.NewService(in.Runner, in.Cipher, in.Sender, in.Clock, trips.Config{
		BiddingWindow:    in.Config.Bidding.DefaultWindow,
		OperationTimeout: in.Config.OperationTimeout,
	}, in.Logger)
}

func newArbiter(in serviceIn) *changereq.Arbiter {
	return changereq.NewArbiter(in.Runner, in.Cipher, in.Sender, in.Clock, in.Config.OperationTimeout, in.Logger)
}

type engineIn struct {
	dig.In

	Config   *config.Config
	Logger   logx.Logger
	Clock    clock.Clock
	Runner   triptx.Runner
	Sender   *notify.Sender
	Outcomes *prometheus.CounterVec `name:"award_sweep_trips_total"`
}

func newAwardEngine(in engineIn) *award.Engine {
	return award.NewEngine(in.Runner, in.Clock, in.Sender, in.Outcomes, in.Logger, award.Config{
		AwardFee:    in.Config.Billing.AwardFee,
		TripTimeout: in.Config.OperationTimeout,
	})
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		newCipher,
		newTripService,
		newArbiter,
		newAwardEngine,
	)
}
