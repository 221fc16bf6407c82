//go:build integration

package app

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/dig"

	"github.com/bedrock-cadence/transport-portal/internal/config"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/service/trips"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("portal"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func integrationContainer(t *testing.T, dsn string, cfg *config.Config) *dig.Container {
	t.Helper()

	c, err := NewContainerBuilder().
		WithConfig(cfg).
		WithDBConnect(func(ctx context.Context, logger logx.Logger, _ string, retries int, delay time.Duration) (*pgxpool.Pool, error) {
			return connectDbWithRetry(ctx, logger, dsn, retries, delay)
		}).
		build(context.Background())
	require.NoError(t, err)
	return c
}

func TestPortal_AutoBidThenSweepAwards(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.Bidding.DefaultWindow = 500 * time.Millisecond
	cfg.AutoBid.CarrierID = 10
	cfg.AutoBid.UserID = 100

	setup := integrationContainer(t, dsn, cfg)
	var tripUUID string
	err := setup.Invoke(func(pool *pgxpool.Pool, svc *trips.Service) error {
		defer pool.Close()

		if err := migrate(ctx, pool); err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO facilities (id, name) VALUES (1, 'General');
			INSERT INTO carriers (id, name) VALUES (10, 'Alpha');
			INSERT INTO users (id, email, entity_type, entity_id) VALUES
				(100, 'alpha@example.test', 'carrier', 10),
				(200, 'nurse@example.test', 'facility', 1);
		`); err != nil {
			return err
		}

		trip, err := svc.CreateTrip(ctx, trips.NewTrip{
			FacilityID:    1,
			Timing:        domain.PickupAt(time.Now().Add(3 * time.Hour)),
			Origin:        "General Hospital",
			Destination:   "12 Elm St",
			DistanceMiles: decimal.RequireFromString("4.2"),
			Patient:       trips.PatientInput{FirstName: "Ada", LastName: "Lovelace", DOB: "1950-12-10", Weight: "140 lb"},
		})
		tripUUID = trip.UUID.String()
		return err
	})
	require.NoError(t, err)

	require.Equal(t, 0, RunAutoBid(integrationContainer(t, dsn, cfg)))

	time.Sleep(cfg.Bidding.DefaultWindow + 200*time.Millisecond)
	require.Equal(t, 0, RunAwardSweep(integrationContainer(t, dsn, cfg)))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	var status string
	var carrierID int64
	err = pool.QueryRow(ctx, `SELECT status, carrier_id FROM trips WHERE uuid = $1`, tripUUID).Scan(&status, &carrierID)
	require.NoError(t, err)
	require.Equal(t, string(domain.TripAwarded), status)
	require.Equal(t, int64(10), carrierID)
}
