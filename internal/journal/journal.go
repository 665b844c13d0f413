package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/james-6-23/new-api-tools-sub000/internal/models"
)

var ErrUnavailable = errors.New("journal store not initialized")

// Entry is one locally recorded operator action. The journal is the console's
// own audit trail, distinct from the upstream scanner audit log: it records
// who pulled the trigger from this console and with what outcome.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	Operator  string         `json:"operator"`
	Action    string         `json:"action"`
	TargetID  string         `json:"target_id"`
	Detail    map[string]any `json:"detail,omitempty"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists journal entries in postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Enabled reports whether a backing pool is configured. The journal is
// optional; a console without a database simply skips local auditing.
func (s *Store) Enabled() bool {
	return s != nil && s.pool != nil
}

// Record appends one entry.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if !s.Enabled() {
		return ErrUnavailable
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	detail := entry.Detail
	if detail == nil {
		detail = map[string]any{}
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal journal detail: %w", err)
	}

	const q = `
		INSERT INTO risk_action_journal (id, operator, action, target_id, detail, success, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`
	if _, err := s.pool.Exec(ctx, q,
		entry.ID, entry.Operator, entry.Action, entry.TargetID, detailJSON, entry.Success, entry.Error); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// List returns one page of entries, newest first.
func (s *Store) List(ctx context.Context, page, pageSize int) (*models.Page[Entry], error) {
	if !s.Enabled() {
		return nil, ErrUnavailable
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM risk_action_journal`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count journal entries: %w", err)
	}

	const q = `
		SELECT id, operator, action, target_id, detail, success, error_message, created_at
		FROM risk_action_journal
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := s.pool.Query(ctx, q, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, pageSize)
	for rows.Next() {
		var (
			entry      Entry
			detailJSON []byte
		)
		if err := rows.Scan(&entry.ID, &entry.Operator, &entry.Action, &entry.TargetID,
			&detailJSON, &entry.Success, &entry.Error, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if len(detailJSON) > 0 {
			_ = json.Unmarshal(detailJSON, &entry.Detail)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}

	return &models.Page[Entry]{
		Items:    entries,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}
