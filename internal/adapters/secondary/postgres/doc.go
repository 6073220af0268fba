// Package postgres implements the repository ports on PostgreSQL through
// pgx. No migration tooling ships with the service; the schema is
// provisioned externally and the repositories expect the following DDL:
//
//	CREATE TABLE emulator (
//	    id                UUID PRIMARY KEY,
//	    created_at        TIMESTAMPTZ NOT NULL,
//	    updated_at        TIMESTAMPTZ NOT NULL,
//	    name              TEXT NOT NULL,
//	    slug              TEXT NOT NULL,
//	    version           TEXT NOT NULL DEFAULT '',
//	    description       TEXT NOT NULL DEFAULT '',
//	    artifact_path     TEXT NOT NULL,
//	    grid_name         TEXT NOT NULL DEFAULT '',
//	    status            TEXT NOT NULL,
//	    last_error        TEXT NOT NULL DEFAULT '',
//	    labels            JSONB NOT NULL DEFAULT '{}',
//	    inputs            JSONB NOT NULL DEFAULT '[]',
//	    classical_outputs JSONB NOT NULL DEFAULT '[]',
//	    astero_outputs    JSONB NOT NULL DEFAULT '[]',
//	    parameter_ranges  JSONB NOT NULL DEFAULT '{}',
//	    UNIQUE (name, version)
//	);
//
//	CREATE TABLE inference_run (
//	    id           UUID PRIMARY KEY,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL,
//	    name         TEXT NOT NULL,
//	    description  TEXT NOT NULL DEFAULT '',
//	    emulator_id  UUID NOT NULL REFERENCES emulator (id) ON DELETE CASCADE,
//	    star         TEXT,
//	    observations JSONB NOT NULL DEFAULT '[]',
//	    priors       JSONB NOT NULL DEFAULT '{}',
//	    sampler      JSONB NOT NULL DEFAULT '{}',
//	    status       TEXT NOT NULL,
//	    runner       TEXT,
//	    external_id  TEXT,
//	    started_at   TIMESTAMPTZ,
//	    completed_at TIMESTAMPTZ,
//	    last_error   TEXT
//	);
//	CREATE INDEX inference_run_emulator_idx ON inference_run (emulator_id);
//	CREATE INDEX inference_run_status_idx ON inference_run (status);
//
//	CREATE TABLE inference_run_result (
//	    run_id       UUID PRIMARY KEY REFERENCES inference_run (id) ON DELETE CASCADE,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    logz         DOUBLE PRECISION NOT NULL,
//	    logz_err     DOUBLE PRECISION NOT NULL,
//	    information  DOUBLE PRECISION NOT NULL,
//	    niter        BIGINT NOT NULL,
//	    ncalls       BIGINT NOT NULL,
//	    efficiency   DOUBLE PRECISION NOT NULL,
//	    stop_reason  TEXT NOT NULL,
//	    n_posterior  BIGINT NOT NULL,
//	    samples_path TEXT NOT NULL,
//	    posterior    JSONB NOT NULL DEFAULT '[]'
//	);
//
// Deleting an emulator cascades to its historical runs and results; the
// service layer refuses the delete while any run is still PENDING or
// RUNNING.
package postgres
