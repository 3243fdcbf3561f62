package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/repositories"
	"github.com/medicrew/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

var notificationColumns = []interface{}{
	"id", "patient_id", "doctor_id", "title", "message", "type", "read", "created_at",
}

// NotificationAdapter implements the NotificationRepository interface
type NotificationAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewNotificationAdapter creates a new notification adapter
func NewNotificationAdapter(client *postgres.Client) repositories.NotificationRepository {
	return &NotificationAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a notification
func (a *NotificationAdapter) Create(ctx context.Context, notification *entities.Notification) error {
	query, args, err := a.db.Insert("notifications").Rows(goqu.Record{
		"id":         notification.ID,
		"patient_id": notification.PatientID,
		"doctor_id":  notification.DoctorID,
		"title":      notification.Title,
		"message":    notification.Message,
		"type":       notification.Type,
		"read":       notification.Read,
		"created_at": notification.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create notification", err)
	}
	return nil
}

// ListByPatient returns a patient's notifications newest first
func (a *NotificationAdapter) ListByPatient(ctx context.Context, patientID string) ([]*entities.Notification, error) {
	query, args, err := a.db.Select(notificationColumns...).
		From("notifications").
		Where(goqu.Ex{"patient_id": patientID}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list notifications", err)
	}
	defer rows.Close()

	notifications := make([]*entities.Notification, 0)
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan notification", err)
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate notifications", err)
	}
	return notifications, nil
}

// MarkRead flags a notification as read and returns it
func (a *NotificationAdapter) MarkRead(ctx context.Context, id string) (*entities.Notification, error) {
	query, args, err := a.db.Update("notifications").
		Set(goqu.Record{"read": true}).
		Where(goqu.Ex{"id": id}).
		Returning(notificationColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	notification, err := scanNotification(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("notification with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to mark notification read", err)
	}
	return notification, nil
}

func scanNotification(row rowScanner) (*entities.Notification, error) {
	notification := &entities.Notification{}
	if err := row.Scan(
		&notification.ID,
		&notification.PatientID,
		&notification.DoctorID,
		&notification.Title,
		&notification.Message,
		&notification.Type,
		&notification.Read,
		&notification.CreatedAt,
	); err != nil {
		return nil, err
	}
	return notification, nil
}
