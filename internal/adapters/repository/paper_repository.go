package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyflow/core/internal/domain/entities"
	"github.com/studyflow/core/internal/ports"
)

// PaperRepositoryImpl implements the PaperRepository interface
type PaperRepositoryImpl struct {
	db *sqlx.DB
}

// NewPaperRepository creates a new paper repository
func NewPaperRepository(db *sqlx.DB) ports.PaperRepository {
	return &PaperRepositoryImpl{db: db}
}

func (r *PaperRepositoryImpl) Create(ctx context.Context, paper *entities.Paper) error {
	query := `
		INSERT INTO papers (id, subject_id, year, session, paper_number, title, download_url, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		paper.ID, paper.SubjectID, paper.Year, paper.Session,
		paper.PaperNumber, paper.Title, paper.DownloadURL, paper.UploadedBy,
	).Scan(&paper.CreatedAt, &paper.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create paper: %w", err)
	}

	return nil
}

func (r *PaperRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Paper, error) {
	query := `
		SELECT id, subject_id, year, session, paper_number, title, download_url,
			uploaded_by, created_at, updated_at, deleted_at
		FROM papers
		WHERE id = $1 AND deleted_at IS NULL`

	var paper entities.Paper
	err := r.db.GetContext(ctx, &paper, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrPaperNotFound
		}
		return nil, fmt.Errorf("get paper by id: %w", err)
	}

	return &paper, nil
}

func (r *PaperRepositoryImpl) List(ctx context.Context, filter ports.PaperFilter) ([]*entities.Paper, error) {
	where, args := buildPaperFilter(filter)

	query := fmt.Sprintf(`
		SELECT id, subject_id, year, session, paper_number, title, download_url,
			uploaded_by, created_at, updated_at, deleted_at
		FROM papers
		%s
		ORDER BY year DESC, session, paper_number
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

	args = append(args, filter.Limit, filter.Offset)

	var papers []*entities.Paper
	if err := r.db.SelectContext(ctx, &papers, query, args...); err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}

	return papers, nil
}

func (r *PaperRepositoryImpl) Count(ctx context.Context, filter ports.PaperFilter) (int64, error) {
	where, args := buildPaperFilter(filter)

	query := fmt.Sprintf(`SELECT COUNT(*) FROM papers %s`, where)

	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}

	return count, nil
}

func (r *PaperRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE papers SET deleted_at = CURRENT_TIMESTAMP WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrPaperNotFound
	}

	return nil
}

func buildPaperFilter(filter ports.PaperFilter) (string, []interface{}) {
	clauses := []string{"deleted_at IS NULL"}
	var args []interface{}

	if filter.SubjectID != nil {
		args = append(args, *filter.SubjectID)
		clauses = append(clauses, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		clauses = append(clauses, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.Session != nil {
		args = append(args, *filter.Session)
		clauses = append(clauses, fmt.Sprintf("session = $%d", len(args)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}
