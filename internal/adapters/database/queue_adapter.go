package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/repositories"
	"github.com/medicrew/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

var queueColumns = []interface{}{
	"id", "patient_id", "patient_name", "urgency_level",
	"estimated_wait_time", "status", "symptom_check_id", "check_in_time",
}

// QueueAdapter implements the QueueRepository interface
type QueueAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewQueueAdapter creates a new queue adapter
func NewQueueAdapter(client *postgres.Client) repositories.QueueRepository {
	return &QueueAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Enqueue takes an exclusive table lock so the waiting count used for the
// estimate cannot change before the insert commits.
func (a *QueueAdapter) Enqueue(ctx context.Context, item *entities.QueueItem, estimate repositories.WaitEstimator) error {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "LOCK TABLE queue_items IN EXCLUSIVE MODE"); err != nil {
		return apperrors.NewInternalError("failed to lock queue", err)
	}

	countQuery, args, err := a.db.From("queue_items").
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"status": entities.QueueWaiting}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build count query", err)
	}

	var waiting int
	if err := tx.QueryRowContext(ctx, countQuery, args...).Scan(&waiting); err != nil {
		return apperrors.NewInternalError("failed to count waiting patients", err)
	}
	item.EstimatedWaitTime = estimate(waiting)

	insert, args, err := a.db.Insert("queue_items").Rows(goqu.Record{
		"id":                  item.ID,
		"patient_id":          item.PatientID,
		"patient_name":        item.PatientName,
		"urgency_level":       item.UrgencyLevel,
		"estimated_wait_time": item.EstimatedWaitTime,
		"status":              item.Status,
		"symptom_check_id":    item.SymptomCheckID,
		"check_in_time":       item.CheckInTime,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return apperrors.NewInternalError("failed to enqueue patient", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit enqueue", err)
	}
	return nil
}

// GetByID retrieves a queue item by ID
func (a *QueueAdapter) GetByID(ctx context.Context, id string) (*entities.QueueItem, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, fmt.Sprintf("queue item with id %s not found", id))
}

// GetBySymptomCheckID retrieves the item created for a symptom check
func (a *QueueAdapter) GetBySymptomCheckID(ctx context.Context, symptomCheckID string) (*entities.QueueItem, error) {
	return a.getOne(ctx, goqu.Ex{"symptom_check_id": symptomCheckID},
		fmt.Sprintf("queue item for symptom check %s not found", symptomCheckID))
}

func (a *QueueAdapter) getOne(ctx context.Context, where goqu.Ex, notFound string) (*entities.QueueItem, error) {
	query, args, err := a.db.Select(queueColumns...).
		From("queue_items").
		Where(where).
		Order(goqu.I("seq").Asc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	item, err := scanQueueItem(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get queue item", err)
	}
	return item, nil
}

// List returns every item in insertion order
func (a *QueueAdapter) List(ctx context.Context) ([]*entities.QueueItem, error) {
	query, args, err := a.db.Select(queueColumns...).
		From("queue_items").
		Order(goqu.I("seq").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list queue", err)
	}
	defer rows.Close()

	items := make([]*entities.QueueItem, 0)
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan queue item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate queue", err)
	}
	return items, nil
}

// UpdateStatus advances an item's status. Moving backwards is a conflict.
func (a *QueueAdapter) UpdateStatus(ctx context.Context, id string, status entities.QueueStatus) (*entities.QueueItem, error) {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := a.db.Select(queueColumns...).
		From("queue_items").
		Where(goqu.Ex{"id": id}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	item, err := scanQueueItem(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("queue item with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get queue item", err)
	}

	if !item.Status.CanAdvanceTo(status) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("cannot move queue item from %s to %s", item.Status, status))
	}
	if item.Status == status {
		return item, nil
	}

	update, args, err := a.db.Update("queue_items").
		Set(goqu.Record{"status": status}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}
	if _, err := tx.ExecContext(ctx, update, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to update queue item", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit queue update", err)
	}

	item.Status = status
	return item, nil
}

// Remove deletes an item
func (a *QueueAdapter) Remove(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("queue_items").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to remove queue item", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("queue item with id %s not found", id))
	}
	return nil
}

func scanQueueItem(row rowScanner) (*entities.QueueItem, error) {
	item := &entities.QueueItem{}
	if err := row.Scan(
		&item.ID,
		&item.PatientID,
		&item.PatientName,
		&item.UrgencyLevel,
		&item.EstimatedWaitTime,
		&item.Status,
		&item.SymptomCheckID,
		&item.CheckInTime,
	); err != nil {
		return nil, err
	}
	return item, nil
}
