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

// emulatorRepo persists emulators in the emulator table. Interface metadata
// (inputs, outputs, parameter_ranges) and labels are JSONB columns; name and
// version carry a unique constraint.
type emulatorRepo struct {
	pool *pgxpool.Pool
}

func NewEmulatorRepository(pool *pgxpool.Pool) ports.EmulatorRepository {
	return &emulatorRepo{pool: pool}
}

const emulatorColumns = `
	id, created_at, updated_at, name, slug, version, description,
	artifact_path, grid_name, status, last_error, labels,
	inputs, classical_outputs, astero_outputs, parameter_ranges`

func (r *emulatorRepo) Create(ctx context.Context, em *domain.Emulator) error {
	labelsJSON, inputsJSON, classicalJSON, asteroJSON, rangesJSON, err := marshalEmulatorJSON(em)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO emulator
			(id, created_at, updated_at, name, slug, version, description,
			 artifact_path, grid_name, status, last_error, labels,
			 inputs, classical_outputs, astero_outputs, parameter_ranges)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`
	_, err = r.pool.Exec(ctx, query,
		em.ID, em.CreatedAt, em.UpdatedAt, em.Name, em.Slug, em.Version,
		em.Description, em.ArtifactPath, em.GridName, string(em.Status),
		em.LastError, labelsJSON, inputsJSON, classicalJSON, asteroJSON, rangesJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrEmulatorNameConflict
		}
		return fmt.Errorf("create emulator: %w", err)
	}
	return nil
}

func (r *emulatorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Emulator, error) {
	query := fmt.Sprintf("SELECT %s FROM emulator WHERE id = $1", emulatorColumns)

	em, err := scanEmulator(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEmulatorNotFound
		}
		return nil, fmt.Errorf("get emulator by id: %w", err)
	}
	return em, nil
}

func (r *emulatorRepo) GetByNameVersion(ctx context.Context, name, version string) (*domain.Emulator, error) {
	query := fmt.Sprintf("SELECT %s FROM emulator WHERE name = $1 AND version = $2", emulatorColumns)

	em, err := scanEmulator(r.pool.QueryRow(ctx, query, name, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEmulatorNotFound
		}
		return nil, fmt.Errorf("get emulator by name and version: %w", err)
	}
	return em, nil
}

func (r *emulatorRepo) Update(ctx context.Context, em *domain.Emulator) error {
	labelsJSON, inputsJSON, classicalJSON, asteroJSON, rangesJSON, err := marshalEmulatorJSON(em)
	if err != nil {
		return err
	}

	query := `
		UPDATE emulator
		SET name=$1, slug=$2, version=$3, description=$4, artifact_path=$5,
			grid_name=$6, status=$7, last_error=$8, labels=$9,
			inputs=$10, classical_outputs=$11, astero_outputs=$12,
			parameter_ranges=$13, updated_at=NOW()
		WHERE id=$14
	`
	result, err := r.pool.Exec(ctx, query,
		em.Name, em.Slug, em.Version, em.Description, em.ArtifactPath,
		em.GridName, string(em.Status), em.LastError, labelsJSON,
		inputsJSON, classicalJSON, asteroJSON, rangesJSON, em.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrEmulatorNameConflict
		}
		return fmt.Errorf("update emulator: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEmulatorNotFound
	}
	return nil
}

func (r *emulatorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM emulator WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete emulator: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEmulatorNotFound
	}
	return nil
}

func (r *emulatorRepo) List(ctx context.Context, filter ports.EmulatorListFilter) ([]*domain.Emulator, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}
	if filter.Grid != "" {
		conditions = append(conditions, fmt.Sprintf("grid_name = $%d", argPos))
		args = append(args, filter.Grid)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	whereClause := "1=1"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM emulator WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count emulators: %w", err)
	}

	orderBy := "created_at DESC"
	if filter.SortBy != "" {
		dir := "DESC"
		if filter.Order == "asc" {
			dir = "ASC"
		}
		orderBy = fmt.Sprintf("%s %s", filter.SortBy, dir)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM emulator
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, emulatorColumns, whereClause, orderBy, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list emulators: %w", err)
	}
	defer rows.Close()

	var emulators []*domain.Emulator
	for rows.Next() {
		em, err := scanEmulator(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan emulator row: %w", err)
		}
		emulators = append(emulators, em)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate emulator rows: %w", err)
	}

	return emulators, total, nil
}

func marshalEmulatorJSON(em *domain.Emulator) (labels, inputs, classical, astero, ranges []byte, err error) {
	if labels, err = json.Marshal(em.Labels); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal labels: %w", err)
	}
	if inputs, err = json.Marshal(em.Inputs); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal inputs: %w", err)
	}
	if classical, err = json.Marshal(em.ClassicalOutputs); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal classical outputs: %w", err)
	}
	if astero, err = json.Marshal(em.AsteroOutputs); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal astero outputs: %w", err)
	}
	if ranges, err = json.Marshal(em.ParameterRanges); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("marshal parameter ranges: %w", err)
	}
	return labels, inputs, classical, astero, ranges, nil
}

func scanEmulator(row pgx.Row) (*domain.Emulator, error) {
	em := &domain.Emulator{}
	var labelsJSON, inputsJSON, classicalJSON, asteroJSON, rangesJSON []byte

	err := row.Scan(
		&em.ID, &em.CreatedAt, &em.UpdatedAt, &em.Name, &em.Slug, &em.Version,
		&em.Description, &em.ArtifactPath, &em.GridName, &em.Status,
		&em.LastError, &labelsJSON, &inputsJSON, &classicalJSON, &asteroJSON,
		&rangesJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &em.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	if em.Labels == nil {
		em.Labels = map[string]string{}
	}
	if len(inputsJSON) > 0 {
		if err := json.Unmarshal(inputsJSON, &em.Inputs); err != nil {
			return nil, fmt.Errorf("unmarshal inputs: %w", err)
		}
	}
	if len(classicalJSON) > 0 {
		if err := json.Unmarshal(classicalJSON, &em.ClassicalOutputs); err != nil {
			return nil, fmt.Errorf("unmarshal classical outputs: %w", err)
		}
	}
	if len(asteroJSON) > 0 {
		if err := json.Unmarshal(asteroJSON, &em.AsteroOutputs); err != nil {
			return nil, fmt.Errorf("unmarshal astero outputs: %w", err)
		}
	}
	if len(rangesJSON) > 0 {
		if err := json.Unmarshal(rangesJSON, &em.ParameterRanges); err != nil {
			return nil, fmt.Errorf("unmarshal parameter ranges: %w", err)
		}
	}

	return em, nil
}
