package postgres

import (
	"context"
	"database/sql"
	"time"

	"entryapi/internal/model"
	"entryapi/internal/repository"
)

// EntryPostgres is a PostgreSQL implementation of repository.EntryRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type EntryPostgres struct {
	db *sql.DB
}

// NewEntryPostgres creates a new EntryPostgres repository.
func NewEntryPostgres(db *sql.DB) *EntryPostgres {
	return &EntryPostgres{db: db}
}

var _ repository.EntryRepository = (*EntryPostgres)(nil)

const entryColumns = `id, parent_id, title, body, attachment_path, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*model.Entry, error) {
	var (
		e        model.Entry
		parentID sql.NullString
	)
	if err := s.Scan(
		&e.ID,
		&parentID,
		&e.Title,
		&e.Body,
		&e.AttachmentPath,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if parentID.Valid {
		e.ParentID = &parentID.String
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]model.Entry, error) {
	defer rows.Close()

	items := make([]model.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Create inserts a new entry row and returns the stored record.
func (r *EntryPostgres) Create(ctx context.Context, e *model.Entry) (*model.Entry, error) {
	const q = `
		INSERT INTO entries (id, parent_id, title, body, attachment_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + entryColumns

	var parentID sql.NullString
	if e.ParentID != nil {
		parentID = sql.NullString{String: *e.ParentID, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, q,
		e.ID,
		parentID,
		e.Title,
		e.Body,
		e.AttachmentPath,
		e.CreatedAt,
		e.UpdatedAt,
	)
	return scanEntry(row)
}

// FindByID fetches a single entry by its ID.
func (r *EntryPostgres) FindByID(ctx context.Context, id string) (*model.Entry, error) {
	const q = `SELECT ` + entryColumns + ` FROM entries WHERE id = $1`
	return scanEntry(r.db.QueryRowContext(ctx, q, id))
}

// FindChildren returns the direct children of an entry in creation order.
func (r *EntryPostgres) FindChildren(ctx context.Context, parentID string) ([]model.Entry, error) {
	const q = `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE parent_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// List returns root entries using LIMIT/OFFSET pagination and a total count.
func (r *EntryPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Entry], error) {
	const qCount = `SELECT COUNT(*) FROM entries WHERE parent_id IS NULL`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE parent_id IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	items, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Entry]{
		Items: items,
		Total: total,
	}, nil
}

// SetAttachment stores the attachment path and bumps updated_at to at.
func (r *EntryPostgres) SetAttachment(ctx context.Context, id, path string, at time.Time) error {
	const q = `UPDATE entries SET attachment_path = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, path, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AttachmentPaths walks the subtree rooted at id and collects non-empty attachment paths.
func (r *EntryPostgres) AttachmentPaths(ctx context.Context, id string) ([]string, error) {
	const q = `
		WITH RECURSIVE subtree AS (
			SELECT id, attachment_path FROM entries WHERE id = $1
			UNION ALL
			SELECT e.id, e.attachment_path FROM entries e JOIN subtree s ON e.parent_id = s.id
		)
		SELECT attachment_path FROM subtree WHERE attachment_path <> ''
	`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

// Delete removes an entry by ID. It does not return an error if the row does not exist.
// Children are removed by the ON DELETE CASCADE foreign key.
func (r *EntryPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM entries WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
