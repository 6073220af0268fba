package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
)

// inferenceRunRepo persists runs in the inference_run table and their
// outcomes in inference_run_result (one row per run, replaced on re-execute).
// Observations, priors, sampler settings and posterior summaries are JSONB.
type inferenceRunRepo struct {
	pool *pgxpool.Pool
}

func NewInferenceRunRepository(pool *pgxpool.Pool) ports.InferenceRunRepository {
	return &inferenceRunRepo{pool: pool}
}

const runColumns = `
	ir.id, ir.created_at, ir.updated_at, ir.name, ir.description,
	ir.emulator_id, COALESCE(ir.star, '') AS star,
	ir.observations, ir.priors, ir.sampler,
	ir.status, COALESCE(ir.runner, '') AS runner,
	COALESCE(ir.external_id, '') AS external_id,
	ir.started_at, ir.completed_at, COALESCE(ir.last_error, '') AS last_error`

func (r *inferenceRunRepo) Create(ctx context.Context, run *domain.InferenceRun) error {
	obsJSON, priorsJSON, samplerJSON, err := marshalRunJSON(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO inference_run
			(id, created_at, updated_at, name, description, emulator_id, star,
			 observations, priors, sampler, status, runner, external_id,
			 started_at, completed_at, last_error)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID, run.CreatedAt, run.UpdatedAt, run.Name, run.Description,
		run.EmulatorID, run.Star, obsJSON, priorsJSON, samplerJSON,
		string(run.Status), run.Runner, run.ExternalID,
		run.StartedAt, run.CompletedAt, run.LastError,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrEmulatorNotFound
		}
		return fmt.Errorf("create inference run: %w", err)
	}
	return nil
}

func (r *inferenceRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InferenceRun, error) {
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(e.name, '') AS emulator_name
		FROM inference_run ir
		LEFT JOIN emulator e ON e.id = ir.emulator_id
		WHERE ir.id = $1
	`, runColumns)

	run, err := scanRunWithEmulator(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get inference run by id: %w", err)
	}
	return run, nil
}

func (r *inferenceRunRepo) Update(ctx context.Context, run *domain.InferenceRun) error {
	obsJSON, priorsJSON, samplerJSON, err := marshalRunJSON(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE inference_run
		SET name=$1, description=$2, star=$3, observations=$4, priors=$5,
			sampler=$6, status=$7, runner=$8, external_id=$9,
			started_at=$10, completed_at=$11, last_error=$12, updated_at=NOW()
		WHERE id=$13
	`
	result, err := r.pool.Exec(ctx, query,
		run.Name, run.Description, run.Star, obsJSON, priorsJSON, samplerJSON,
		string(run.Status), run.Runner, run.ExternalID,
		run.StartedAt, run.CompletedAt, run.LastError, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update inference run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *inferenceRunRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM inference_run WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete inference run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *inferenceRunRepo) List(ctx context.Context, filter ports.RunListFilter) ([]*domain.InferenceRun, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.EmulatorID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("ir.emulator_id = $%d", argPos))
		args = append(args, filter.EmulatorID)
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("ir.status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}
	if filter.StarName != "" {
		conditions = append(conditions, fmt.Sprintf("ir.star = $%d", argPos))
		args = append(args, filter.StarName)
		argPos++
	}

	whereClause := "1=1"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM inference_run ir WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inference runs: %w", err)
	}

	orderBy := "ir.created_at DESC"
	if filter.SortBy != "" {
		dir := "DESC"
		if filter.Order == "asc" {
			dir = "ASC"
		}
		orderBy = fmt.Sprintf("ir.%s %s", filter.SortBy, dir)
	}

	query := fmt.Sprintf(`
		SELECT %s, COALESCE(e.name, '') AS emulator_name
		FROM inference_run ir
		LEFT JOIN emulator e ON e.id = ir.emulator_id
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, runColumns, whereClause, orderBy, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list inference runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.InferenceRun
	for rows.Next() {
		run, err := scanRunWithEmulator(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan inference run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate inference run rows: %w", err)
	}

	return runs, total, nil
}

func (r *inferenceRunRepo) CountActiveByEmulator(ctx context.Context, emulatorID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM inference_run
		WHERE emulator_id = $1 AND status IN ('PENDING', 'RUNNING')
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, emulatorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active runs: %w", err)
	}
	return count, nil
}

// Claim flips a PENDING run to RUNNING in a single conditional update, so two
// workers racing for the same run cannot both win it.
func (r *inferenceRunRepo) Claim(ctx context.Context, id uuid.UUID, runner string) (*domain.InferenceRun, error) {
	query := fmt.Sprintf(`
		UPDATE inference_run ir
		SET status='RUNNING', runner=$2, started_at=NOW(), last_error='', updated_at=NOW()
		WHERE ir.id = $1 AND ir.status = 'PENDING'
		RETURNING %s
	`, runColumns)

	run, err := scanRun(r.pool.QueryRow(ctx, query, id, runner))
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("claim inference run: %w", err)
	}

	// Nothing matched: either the run is gone or it was not PENDING.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrRunNotPending
}

func (r *inferenceRunRepo) SaveResult(ctx context.Context, result *domain.RunResult) error {
	posteriorJSON, err := json.Marshal(result.Posterior)
	if err != nil {
		return fmt.Errorf("marshal posterior summaries: %w", err)
	}

	query := `
		INSERT INTO inference_run_result
			(run_id, created_at, logz, logz_err, information, niter, ncalls,
			 efficiency, stop_reason, n_posterior, samples_path, posterior)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (run_id) DO UPDATE SET
			created_at=EXCLUDED.created_at, logz=EXCLUDED.logz,
			logz_err=EXCLUDED.logz_err, information=EXCLUDED.information,
			niter=EXCLUDED.niter, ncalls=EXCLUDED.ncalls,
			efficiency=EXCLUDED.efficiency, stop_reason=EXCLUDED.stop_reason,
			n_posterior=EXCLUDED.n_posterior, samples_path=EXCLUDED.samples_path,
			posterior=EXCLUDED.posterior
	`
	_, err = r.pool.Exec(ctx, query,
		result.RunID, result.CreatedAt, result.LogZ, result.LogZErr,
		result.Information, result.NIter, result.NCalls, result.Efficiency,
		result.StopReason, result.NPosterior, result.SamplesPath, posteriorJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrRunNotFound
		}
		return fmt.Errorf("save run result: %w", err)
	}
	return nil
}

func (r *inferenceRunRepo) GetResult(ctx context.Context, runID uuid.UUID) (*domain.RunResult, error) {
	query := `
		SELECT run_id, created_at, logz, logz_err, information, niter, ncalls,
			   efficiency, stop_reason, n_posterior, samples_path, posterior
		FROM inference_run_result
		WHERE run_id = $1
	`

	result := &domain.RunResult{}
	var posteriorJSON []byte
	err := r.pool.QueryRow(ctx, query, runID).Scan(
		&result.RunID, &result.CreatedAt, &result.LogZ, &result.LogZErr,
		&result.Information, &result.NIter, &result.NCalls, &result.Efficiency,
		&result.StopReason, &result.NPosterior, &result.SamplesPath, &posteriorJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResultNotFound
		}
		return nil, fmt.Errorf("get run result: %w", err)
	}

	if len(posteriorJSON) > 0 {
		if err := json.Unmarshal(posteriorJSON, &result.Posterior); err != nil {
			return nil, fmt.Errorf("unmarshal posterior summaries: %w", err)
		}
	}
	return result, nil
}

func marshalRunJSON(run *domain.InferenceRun) (obs, priors, sampler []byte, err error) {
	if obs, err = json.Marshal(run.Observations); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal observations: %w", err)
	}
	if priors, err = json.Marshal(run.Priors); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal priors: %w", err)
	}
	if sampler, err = json.Marshal(run.Sampler); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal sampler settings: %w", err)
	}
	return obs, priors, sampler, nil
}

// scanRun scans a run without the emulator join (for RETURNING clauses).
func scanRun(row pgx.Row) (*domain.InferenceRun, error) {
	run := &domain.InferenceRun{}
	var obsJSON, priorsJSON, samplerJSON []byte

	err := row.Scan(
		&run.ID, &run.CreatedAt, &run.UpdatedAt, &run.Name, &run.Description,
		&run.EmulatorID, &run.Star, &obsJSON, &priorsJSON, &samplerJSON,
		&run.Status, &run.Runner, &run.ExternalID,
		&run.StartedAt, &run.CompletedAt, &run.LastError,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalRunJSON(run, obsJSON, priorsJSON, samplerJSON); err != nil {
		return nil, err
	}
	return run, nil
}

func scanRunWithEmulator(row pgx.Row) (*domain.InferenceRun, error) {
	run := &domain.InferenceRun{}
	var obsJSON, priorsJSON, samplerJSON []byte

	err := row.Scan(
		&run.ID, &run.CreatedAt, &run.UpdatedAt, &run.Name, &run.Description,
		&run.EmulatorID, &run.Star, &obsJSON, &priorsJSON, &samplerJSON,
		&run.Status, &run.Runner, &run.ExternalID,
		&run.StartedAt, &run.CompletedAt, &run.LastError,
		&run.EmulatorName,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalRunJSON(run, obsJSON, priorsJSON, samplerJSON); err != nil {
		return nil, err
	}
	return run, nil
}

func unmarshalRunJSON(run *domain.InferenceRun, obsJSON, priorsJSON, samplerJSON []byte) error {
	if len(obsJSON) > 0 {
		if err := json.Unmarshal(obsJSON, &run.Observations); err != nil {
			return fmt.Errorf("unmarshal observations: %w", err)
		}
	}
	if len(priorsJSON) > 0 {
		if err := json.Unmarshal(priorsJSON, &run.Priors); err != nil {
			return fmt.Errorf("unmarshal priors: %w", err)
		}
	}
	if len(samplerJSON) > 0 {
		if err := json.Unmarshal(samplerJSON, &run.Sampler); err != nil {
			return fmt.Errorf("unmarshal sampler settings: %w", err)
		}
	}
	return nil
}
