// Package postgres persists bulk lists and their verified records.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"emailscore/internal/bulk/models"
	scoring "emailscore/internal/scoring/models"
	"emailscore/pkg/domain"
	"emailscore/pkg/platform/sentinel"
	"emailscore/pkg/platform/tx"
)

const recordColumns = 13

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateList(ctx context.Context, list *models.List) error {
	summary, err := encodeSummary(list.Summary)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO lists (id, workspace_id, user_id, status, size, summary, task_handle, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(list.ID),
		uuid.UUID(list.WorkspaceID),
		nullUUID(uuid.UUID(list.UserID)),
		list.Status.String(),
		list.Size,
		summary,
		nullString(list.TaskHandle),
		list.CreatedAt,
		list.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create list: %w", err)
	}
	return nil
}

func (s *Store) FindList(ctx context.Context, workspaceID domain.WorkspaceID, id domain.ListID) (*models.List, error) {
	query := `
		SELECT id, workspace_id, user_id, status, size, summary, task_handle, created_at, updated_at
		FROM lists
		WHERE id = $1 AND workspace_id = $2
	`
	var (
		list       models.List
		listID     uuid.UUID
		workspace  uuid.UUID
		user       uuid.NullUUID
		status     string
		summary    sql.NullString
		taskHandle sql.NullString
	)
	err := tx.Execer(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id), uuid.UUID(workspaceID)).Scan(
		&listID, &workspace, &user, &status, &list.Size, &summary, &taskHandle, &list.CreatedAt, &list.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("list %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find list: %w", err)
	}
	list.ID = domain.ListID(listID)
	list.WorkspaceID = domain.WorkspaceID(workspace)
	if user.Valid {
		list.UserID = domain.UserID(user.UUID)
	}
	list.Status = models.ListStatus(status)
	if summary.Valid {
		var sum models.Summary
		if err := json.Unmarshal([]byte(summary.String), &sum); err != nil {
			return nil, fmt.Errorf("decode list summary: %w", err)
		}
		list.Summary = &sum
	}
	if taskHandle.Valid {
		list.TaskHandle = &taskHandle.String
	}
	return &list, nil
}

func (s *Store) UpdateList(ctx context.Context, list *models.List) error {
	summary, err := encodeSummary(list.Summary)
	if err != nil {
		return err
	}
	query := `
		UPDATE lists
		SET status = $2, summary = $3, task_handle = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := tx.Execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(list.ID),
		list.Status.String(),
		summary,
		nullString(list.TaskHandle),
		list.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update list: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update list: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("list %s: %w", list.ID, sentinel.ErrNotFound)
	}
	return nil
}

// InsertRecords writes a whole chunk in one statement.
func (s *Store) InsertRecords(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO list_records (
		list_id, workspace_id, email, status, score, syntax_error, gibberish, role,
		did_you_mean, disposable, domain_status, mx_record, custom_fields
	) VALUES `)
	args := make([]any, 0, len(records)*recordColumns)
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 1; c <= recordColumns; c++ {
			if c > 1 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*recordColumns+c)
		}
		b.WriteByte(')')

		fields, err := json.Marshal(r.CustomFields)
		if err != nil {
			return fmt.Errorf("encode custom fields: %w", err)
		}
		args = append(args,
			uuid.UUID(r.ListID),
			uuid.UUID(r.WorkspaceID),
			r.Email,
			r.Status.String(),
			r.Score,
			r.SyntaxError,
			nullBool(r.Gibberish),
			nullBool(r.Role),
			nullString(r.DidYouMean),
			nullBool(r.Disposable),
			nullString(r.DomainStatus),
			nullString(r.MXRecord),
			string(fields),
		)
	}

	if _, err := tx.Execer(ctx, s.db).ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert list records: %w", err)
	}
	return nil
}

// DeleteRecords drops every stored record of a list.
func (s *Store) DeleteRecords(ctx context.Context, listID domain.ListID) error {
	query := `DELETE FROM list_records WHERE list_id = $1`
	if _, err := tx.Execer(ctx, s.db).ExecContext(ctx, query, uuid.UUID(listID)); err != nil {
		return fmt.Errorf("delete list records: %w", err)
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, workspaceID domain.WorkspaceID, listID domain.ListID, limit, offset int) ([]models.Record, error) {
	query := `
		SELECT email, status, score, syntax_error, gibberish, role,
			did_you_mean, disposable, domain_status, mx_record, custom_fields
		FROM list_records
		WHERE list_id = $1 AND workspace_id = $2
		ORDER BY id
		LIMIT $3 OFFSET $4
	`
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx, query, uuid.UUID(listID), uuid.UUID(workspaceID), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := []models.Record{}
	for rows.Next() {
		var (
			rec                         models.Record
			status                      string
			gibberish, role, disposable sql.NullBool
			didYouMean, domStatus, mx   sql.NullString
			fields                      sql.NullString
		)
		if err := rows.Scan(&rec.Email, &status, &rec.Score, &rec.SyntaxError, &gibberish, &role,
			&didYouMean, &disposable, &domStatus, &mx, &fields); err != nil {
			return nil, fmt.Errorf("scan list record: %w", err)
		}
		rec.ListID = listID
		rec.WorkspaceID = workspaceID
		rec.Status = scoring.Status(status)
		rec.Gibberish = boolPtr(gibberish)
		rec.Role = boolPtr(role)
		rec.Disposable = boolPtr(disposable)
		rec.DidYouMean = stringPtr(didYouMean)
		rec.DomainStatus = stringPtr(domStatus)
		rec.MXRecord = stringPtr(mx)
		if fields.Valid {
			if err := json.Unmarshal([]byte(fields.String), &rec.CustomFields); err != nil {
				return nil, fmt.Errorf("decode custom fields: %w", err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate list records: %w", err)
	}
	return out, nil
}

func encodeSummary(summary *models.Summary) (sql.NullString, error) {
	if summary == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(summary)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode list summary: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func boolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	return &b.Bool
}
