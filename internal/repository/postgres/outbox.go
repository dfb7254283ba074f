package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/repository"
)

// OutboxRepository implements port.OutboxRepository using PostgreSQL.
type OutboxRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewOutboxRepository wires a PostgreSQL-backed outbox repository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *OutboxRepository) WithTx(tx pgx.Tx) *OutboxRepository {
	if tx == nil {
		return r
	}
	return &OutboxRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Append inserts pending outbox rows, typically within the transaction of
// the mutation that produced them.
func (r *OutboxRepository) Append(ctx context.Context, events ...domain.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := r.builder.Insert("docs.outbox_events").
		Columns("id", "event_type", "payload", "create_date", "dispatch_date")
	for _, event := range events {
		query = query.Values(event.ID, event.EventType, []byte(event.Payload), event.CreateDate, event.DispatchDate)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert outbox sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert outbox events: %w", err)
	}

	return nil
}

// ListPending returns undispatched events, oldest first.
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	query := r.builder.
		Select("id", "event_type", "payload", "create_date", "dispatch_date").
		From("docs.outbox_events").
		Where("dispatch_date IS NULL").
		OrderBy("create_date ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list outbox sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.OutboxEvent, 0)
	for rows.Next() {
		var event domain.OutboxEvent
		var payload []byte
		if err := rows.Scan(&event.ID, &event.EventType, &payload, &event.CreateDate, &event.DispatchDate); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		event.Payload = payload
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}

	return events, nil
}

// MarkDispatched stamps the dispatch date of a delivered event.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("docs.outbox_events").
		Set("dispatch_date", at).
		Where(squirrel.Eq{"id": id}).
		Where("dispatch_date IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark dispatched sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark outbox event dispatched: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.OutboxRepository = (*OutboxRepository)(nil)
