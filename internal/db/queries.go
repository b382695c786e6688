/*-------------------------------------------------------------------------
 *
 * queries.go
 *    Database queries for CaseTrace
 *
 * Provides case and case-file query functions, including the
 * content-hash dedup write path for uploaded files.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/db/queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Queries struct {
	DB *sqlx.DB
}

func NewQueries(db *sqlx.DB) *Queries {
	return &Queries{DB: db}
}

/* GetDB returns the underlying database handle */
func (q *Queries) GetDB() *sqlx.DB {
	return q.DB
}

/* Case queries */
const (
	createCaseQuery = `
		INSERT INTO casetrace.cases (id, title, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	getCaseByIDQuery = `SELECT * FROM casetrace.cases WHERE id = $1`

	updateCaseStatusQuery = `
		UPDATE casetrace.cases SET status = $2, updated_at = NOW() WHERE id = $1`

	setLatestWorkflowQuery = `
		UPDATE casetrace.cases SET latest_workflow_id = $2, updated_at = NOW() WHERE id = $1`

	listCasesQuery = `
		SELECT * FROM casetrace.cases ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	deleteCaseQuery = `DELETE FROM casetrace.cases WHERE id = $1`
)

func (q *Queries) CreateCase(ctx context.Context, c *Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CaseOpen
	}
	err := q.DB.QueryRowContext(ctx, createCaseQuery, c.ID, c.Title, c.Status, c.CreatedBy).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create case: title='%s', error=%w", c.Title, err)
	}
	return nil
}

func (q *Queries) GetCaseByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	var c Case
	err := q.DB.GetContext(ctx, &c, getCaseByIDQuery, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("case not found: case_id='%s'", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: case_id='%s', error=%w", id.String(), err)
	}
	return &c, nil
}

func (q *Queries) UpdateCaseStatus(ctx context.Context, id uuid.UUID, status string) error {
	if _, err := q.DB.ExecContext(ctx, updateCaseStatusQuery, id, status); err != nil {
		return fmt.Errorf("failed to update case status: case_id='%s', status='%s', error=%w", id.String(), status, err)
	}
	return nil
}

func (q *Queries) SetLatestWorkflow(ctx context.Context, caseID, workflowID uuid.UUID) error {
	if _, err := q.DB.ExecContext(ctx, setLatestWorkflowQuery, caseID, workflowID); err != nil {
		return fmt.Errorf("failed to set latest workflow: case_id='%s', workflow_id='%s', error=%w",
			caseID.String(), workflowID.String(), err)
	}
	return nil
}

func (q *Queries) ListCases(ctx context.Context, limit, offset int) ([]Case, error) {
	var cases []Case
	if err := q.DB.SelectContext(ctx, &cases, listCasesQuery, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list cases: limit=%d, offset=%d, error=%w", limit, offset, err)
	}
	return cases, nil
}

func (q *Queries) DeleteCase(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := q.DB.ExecContext(ctx, deleteCaseQuery, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete case: case_id='%s', error=%w", id.String(), err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete case: case_id='%s', error=%w", id.String(), err)
	}
	return rows > 0, nil
}

/* Case file queries */
const (
	findFileByHashQuery = `
		SELECT * FROM casetrace.case_files
		WHERE case_id = $1 AND content_hash = $2
		ORDER BY created_at ASC
		LIMIT 1`

	createCaseFileQuery = `
		INSERT INTO casetrace.case_files
		(id, case_id, file_name, mime_type, size_bytes, storage_path, content_hash, duplicate_of, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	getCaseFileByIDQuery = `SELECT * FROM casetrace.case_files WHERE id = $1`

	listCaseFilesQuery = `
		SELECT * FROM casetrace.case_files WHERE case_id = $1 ORDER BY created_at ASC`
)

/* ResolveDuplicateTarget returns the original a new duplicate must point
 * at. Chains are collapsed on write: if the matched file is itself a
 * duplicate, the new file points at that file's original, never at the
 * duplicate. */
func ResolveDuplicateTarget(existing *CaseFile) uuid.UUID {
	if existing.DuplicateOf != nil {
		return *existing.DuplicateOf
	}
	return existing.ID
}

/* CreateCaseFile inserts a file row, linking duplicate_of when another
 * file in the same case already carries the same content hash. */
func (q *Queries) CreateCaseFile(ctx context.Context, f *CaseFile) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}

	var existing CaseFile
	err := q.DB.GetContext(ctx, &existing, findFileByHashQuery, f.CaseID, f.ContentHash)
	if err == nil {
		target := ResolveDuplicateTarget(&existing)
		f.DuplicateOf = &target
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check file dedup: case_id='%s', content_hash='%s', error=%w",
			f.CaseID.String(), f.ContentHash, err)
	}

	err = q.DB.QueryRowContext(ctx, createCaseFileQuery,
		f.ID, f.CaseID, f.FileName, f.MIMEType, f.SizeBytes, f.StoragePath, f.ContentHash, f.DuplicateOf, f.UploadedBy).
		Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create case file: case_id='%s', file_name='%s', error=%w",
			f.CaseID.String(), f.FileName, err)
	}
	return nil
}

func (q *Queries) GetCaseFileByID(ctx context.Context, id uuid.UUID) (*CaseFile, error) {
	var f CaseFile
	err := q.DB.GetContext(ctx, &f, getCaseFileByIDQuery, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("case file not found: file_id='%s'", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case file: file_id='%s', error=%w", id.String(), err)
	}
	return &f, nil
}

func (q *Queries) ListCaseFiles(ctx context.Context, caseID uuid.UUID) ([]CaseFile, error) {
	var files []CaseFile
	if err := q.DB.SelectContext(ctx, &files, listCaseFilesQuery, caseID); err != nil {
		return nil, fmt.Errorf("failed to list case files: case_id='%s', error=%w", caseID.String(), err)
	}
	return files, nil
}
