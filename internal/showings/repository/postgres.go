package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	showingserrors "showings/internal/showings/errors"
	"showings/pkg/config"
	pgtx "showings/pkg/db/postgres"
	"showings/pkg/model"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	// SQLSTATE raised by the showings_no_overlap exclusion constraint.
	codeExclusionViolation = "23P01"

	showingColumns = `id, lot_id, start_time, end_time, status, client_name, client_email, client_phone,
		notes, calendar_event_id, calendar_link, sync_error, created_at, updated_at`
)

type postgresShowingRepository struct {
	cfg       *config.Config
	db        *sqlx.DB
	txManager pgtx.TransactionManager
}

func NewPostgresShowingRepository(cfg *config.Config) ShowingRepository {
	return &postgresShowingRepository{
		cfg:       cfg,
		db:        cfg.Client.Postgres,
		txManager: pgtx.NewTransactionManager(cfg.Client.Postgres),
	}
}

func (r *postgresShowingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	_, inTx := pgtx.Conn(ctx, r.db).(*sqlx.Tx)
	return withTimeout(ctx, timeout, inTx)
}

func (r *postgresShowingRepository) Create(ctx context.Context, showing *model.Showing) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	showing.ID = uuid.NewString()
	showing.CreatedAt = now()
	showing.UpdatedAt = showing.CreatedAt

	query := `INSERT INTO ` + TableName + ` (` + showingColumns + `)
		VALUES (:id, :lot_id, :start_time, :end_time, :status, :client_name, :client_email, :client_phone,
		:notes, :calendar_event_id, :calendar_link, :sync_error, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, pgtx.Conn(ctx, r.db), query, showing); err != nil {
		showing.ID = ""
		if pgtx.IsCode(err, codeExclusionViolation) {
			return showingserrors.ErrTimeConflict
		}
		return fmt.Errorf("failed to create showing: %w", err)
	}
	return nil
}

func (r *postgresShowingRepository) FindByID(ctx context.Context, id string) (*model.Showing, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, id)
	}

	var showing model.Showing
	err := pgtx.Conn(ctx, r.db).GetContext(ctx, &showing,
		`SELECT `+showingColumns+` FROM `+TableName+` WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, showingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find showing: %w", err)
	}
	return normalize(&showing), nil
}

func (r *postgresShowingRepository) Find(ctx context.Context, filter model.ShowingFilter, limit int, offset int64) ([]*model.Showing, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	where, args := buildWhere(filter)
	query := `SELECT ` + showingColumns + ` FROM ` + TableName + where + ` ORDER BY start_time ASC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	showings := []*model.Showing{}
	if err := pgtx.Conn(ctx, r.db).SelectContext(ctx, &showings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find showings: %w", err)
	}
	return normalizeAll(showings), nil
}

func (r *postgresShowingRepository) Count(ctx context.Context, filter model.ShowingFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	where, args := buildWhere(filter)
	var count int64
	if err := pgtx.Conn(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM `+TableName+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count showings: %w", err)
	}
	return count, nil
}

func (r *postgresShowingRepository) FindScheduledInRange(ctx context.Context, lotID string, start, end time.Time) ([]*model.Showing, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var showings []*model.Showing
	err := pgtx.Conn(ctx, r.db).SelectContext(ctx, &showings,
		`SELECT `+showingColumns+` FROM `+TableName+`
		WHERE lot_id = $1 AND status = $2 AND start_time <= $3 AND end_time >= $4
		ORDER BY start_time ASC`,
		lotID, model.StatusScheduled, end, start)
	if err != nil {
		return nil, fmt.Errorf("failed to find scheduled showings: %w", err)
	}
	return normalizeAll(showings), nil
}

func (r *postgresShowingRepository) UpdateStatus(ctx context.Context, id string, from, to model.ShowingStatus) (*model.Showing, error) {
	return r.compareAndSet(ctx, id,
		`UPDATE `+TableName+` SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2 RETURNING `+showingColumns,
		id, from, to, now())
}

func (r *postgresShowingRepository) UpdateTimes(ctx context.Context, id string, start, end time.Time) (*model.Showing, error) {
	return r.compareAndSet(ctx, id,
		`UPDATE `+TableName+` SET start_time = $3, end_time = $4, updated_at = $5 WHERE id = $1 AND status = $2 RETURNING `+showingColumns,
		id, model.StatusScheduled, start, end, now())
}

func (r *postgresShowingRepository) compareAndSet(ctx context.Context, id string, query string, args ...any) (*model.Showing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, id)
	}

	writeCtx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	var updated model.Showing
	err := pgtx.Conn(writeCtx, r.db).GetContext(writeCtx, &updated, query, args...)
	if err == nil {
		return normalize(&updated), nil
	}
	if pgtx.IsCode(err, codeExclusionViolation) {
		return nil, showingserrors.ErrTimeConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update showing: %w", err)
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, showingserrors.ErrStatusChanged
}

func (r *postgresShowingRepository) SetCalendarEvent(ctx context.Context, id, eventID, link string, onlyIfScheduled bool) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return false, fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, id)
	}

	query := `UPDATE ` + TableName + ` SET calendar_event_id = $2, calendar_link = $3, sync_error = FALSE, updated_at = $4 WHERE id = $1`
	args := []any{id, eventID, link, now()}
	if onlyIfScheduled {
		query += ` AND status = $5`
		args = append(args, model.StatusScheduled)
	}

	result, err := pgtx.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to set calendar event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to set calendar event: %w", err)
	}
	return n > 0, nil
}

func (r *postgresShowingRepository) ClearCalendarEvent(ctx context.Context, id string) error {
	return r.execOne(ctx, id,
		`UPDATE `+TableName+` SET calendar_event_id = '', calendar_link = '', sync_error = FALSE, updated_at = $2 WHERE id = $1`,
		id, now())
}

func (r *postgresShowingRepository) SetSyncError(ctx context.Context, id string, failed bool) error {
	return r.execOne(ctx, id,
		`UPDATE `+TableName+` SET sync_error = $2, updated_at = $3 WHERE id = $1`,
		id, failed, now())
}

func (r *postgresShowingRepository) execOne(ctx context.Context, id string, query string, args ...any) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, id)
	}

	result, err := pgtx.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update showing: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update showing: %w", err)
	}
	if n == 0 {
		return showingserrors.ErrNotFound
	}
	return nil
}

func (r *postgresShowingRepository) FindForReconcile(ctx context.Context, q model.ReconcileQuery) ([]*model.Showing, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := `SELECT ` + showingColumns + ` FROM ` + TableName + ` WHERE `
	args := []any{model.StatusScheduled}
	if q.Scope == model.ReconcileFailed {
		query += `sync_error AND (status = $1 OR calendar_event_id <> '')`
	} else {
		query += `status = $1 AND calendar_event_id <> '' AND NOT sync_error`
	}
	if q.After != nil {
		if _, err := uuid.Parse(q.After.ID); err != nil {
			return nil, fmt.Errorf("%w: %s", showingserrors.ErrInvalidID, q.After.ID)
		}
		args = append(args, q.After.StartTime, q.After.ID)
		query += ` AND (start_time, id) > ($2, $3::uuid)`
	}
	query += ` ORDER BY start_time ASC, id ASC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var showings []*model.Showing
	if err := pgtx.Conn(ctx, r.db).SelectContext(ctx, &showings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find showings for reconcile: %w", err)
	}
	return normalizeAll(showings), nil
}

// LockLot takes a transaction-scoped advisory lock keyed by the lot. The exclusion
// constraint still rejects overlaps written by any path that skips it.
func (r *postgresShowingRepository) LockLot(ctx context.Context, lotID string) error {
	conn := pgtx.Conn(ctx, r.db)
	if _, ok := conn.(*sqlx.Tx); !ok {
		return errors.New("LockLot must run inside a transaction")
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lotID); err != nil {
		return fmt.Errorf("failed to lock lot %s: %w", lotID, err)
	}
	return nil
}

func (r *postgresShowingRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *postgresShowingRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func buildWhere(f model.ShowingFilter) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.LotID != "" {
		add("lot_id = $%d", f.LotID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.From != nil {
		add("end_time > $%d", *f.From)
	}
	if f.To != nil {
		add("start_time < $%d", *f.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// lib/pq returns timestamptz in the session zone; showings are always exposed in UTC.
func normalize(s *model.Showing) *model.Showing {
	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s
}

func normalizeAll(showings []*model.Showing) []*model.Showing {
	for _, s := range showings {
		normalize(s)
	}
	return showings
}
