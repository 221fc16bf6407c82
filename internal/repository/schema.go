package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL of every table the trip store reads or writes.
const Schema = `
CREATE TABLE IF NOT EXISTS facilities (
	id                  BIGSERIAL PRIMARY KEY,
	name                TEXT NOT NULL,
	awarding_preference TEXT NOT NULL DEFAULT 'fastest_eta'
);

CREATE TABLE IF NOT EXISTS carriers (
	id     BIGSERIAL PRIMARY KEY,
	name   TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS users (
	id          BIGSERIAL PRIMARY KEY,
	email       TEXT NOT NULL UNIQUE,
	entity_type TEXT NOT NULL,
	entity_id   BIGINT NOT NULL,
	role        TEXT NOT NULL DEFAULT 'member',
	active      BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS trips (
	id                    BIGSERIAL PRIMARY KEY,
	uuid                  UUID NOT NULL UNIQUE,
	facility_id           BIGINT NOT NULL REFERENCES facilities(id),
	carrier_id            BIGINT REFERENCES carriers(id),
	status                TEXT NOT NULL,
	asap                  BOOLEAN NOT NULL DEFAULT false,
	requested_pickup_at   TIMESTAMPTZ,
	appointment_at        TIMESTAMPTZ,
	bidding_closes_at     TIMESTAMPTZ NOT NULL,
	awarded_eta           TIMESTAMPTZ,
	carrier_completed_at  TIMESTAMPTZ,
	facility_completed_at TIMESTAMPTZ,
	origin                TEXT NOT NULL,
	destination           TEXT NOT NULL,
	distance_miles        NUMERIC(8,2) NOT NULL DEFAULT 0,
	diagnosis             BYTEA,
	equipment             TEXT NOT NULL DEFAULT '',
	isolation_precautions TEXT NOT NULL DEFAULT '',
	patient_first_name    BYTEA,
	patient_last_name     BYTEA,
	patient_dob           BYTEA,
	patient_ssn           BYTEA,
	patient_weight        BYTEA,
	patient_height        BYTEA,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT trips_one_timing CHECK (
		asap::int + (requested_pickup_at IS NOT NULL)::int + (appointment_at IS NOT NULL)::int = 1
	),
	CONSTRAINT trips_carrier_by_status CHECK (
		(status = 'bidding' AND carrier_id IS NULL)
		OR (status IN ('awarded', 'completed') AND carrier_id IS NOT NULL)
		OR status = 'cancelled'
	),
	CONSTRAINT trips_completion_order CHECK (
		facility_completed_at IS NULL OR carrier_completed_at IS NOT NULL
	)
);

CREATE INDEX IF NOT EXISTS trips_open_bidding_idx ON trips (bidding_closes_at) WHERE status = 'bidding';

CREATE TABLE IF NOT EXISTS bids (
	id         BIGSERIAL PRIMARY KEY,
	trip_id    BIGINT NOT NULL REFERENCES trips(id),
	carrier_id BIGINT NOT NULL REFERENCES carriers(id),
	user_id    BIGINT NOT NULL REFERENCES users(id),
	eta        TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (trip_id, carrier_id)
);

CREATE TABLE IF NOT EXISTS lockouts (
	trip_id    BIGINT NOT NULL REFERENCES trips(id),
	carrier_id BIGINT NOT NULL REFERENCES carriers(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (trip_id, carrier_id)
);

CREATE TABLE IF NOT EXISTS preferences (
	facility_id BIGINT NOT NULL REFERENCES facilities(id),
	carrier_id  BIGINT NOT NULL REFERENCES carriers(id),
	kind        TEXT NOT NULL,
	PRIMARY KEY (facility_id, carrier_id)
);

CREATE TABLE IF NOT EXISTS change_requests (
	id           BIGSERIAL PRIMARY KEY,
	trip_id      BIGINT NOT NULL REFERENCES trips(id),
	kind         TEXT NOT NULL,
	requested_by BIGINT NOT NULL REFERENCES users(id),
	diff         JSONB NOT NULL,
	status       TEXT NOT NULL,
	resolved_by  BIGINT REFERENCES users(id),
	resolved_at  TIMESTAMPTZ,
	follow_up    TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS change_requests_one_pending_idx
	ON change_requests (trip_id, kind) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS audit_log (
	id            BIGSERIAL PRIMARY KEY,
	trip_id       BIGINT NOT NULL REFERENCES trips(id),
	actor_user_id BIGINT,
	event         TEXT NOT NULL,
	detail        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS audit_log_extension_once_idx
	ON audit_log (trip_id) WHERE event = 'bidding_extended';

CREATE TABLE IF NOT EXISTS billing_line_items (
	id          BIGSERIAL PRIMARY KEY,
	trip_id     BIGINT NOT NULL REFERENCES trips(id),
	bid_id      BIGINT NOT NULL,
	facility_id BIGINT NOT NULL,
	carrier_id  BIGINT NOT NULL,
	amount      NUMERIC(12,2) NOT NULL,
	description TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- один счёт на каждое присуждение: после rebroadcast поездка может быть присуждена снова
ALTER TABLE billing_line_items ADD COLUMN IF NOT EXISTS bid_id BIGINT;
ALTER TABLE billing_line_items DROP CONSTRAINT IF EXISTS billing_line_items_trip_id_key;
CREATE UNIQUE INDEX IF NOT EXISTS billing_line_items_award_idx
	ON billing_line_items (trip_id, bid_id);
`

// Migrate applies Schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
