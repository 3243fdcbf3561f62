package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/domain/repositories"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// NotificationRequest is a message sent to a patient
type NotificationRequest struct {
	PatientID string                    `json:"patientId"`
	DoctorID  string                    `json:"doctorId,omitempty"`
	Title     string                    `json:"title"`
	Message   string                    `json:"message"`
	Type      entities.NotificationType `json:"type,omitempty"`
}

// NotificationService handles patient notifications
type NotificationService struct {
	eventPublisher
	repo repositories.NotificationRepository
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo repositories.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// Send stores a notification and pushes it to the patient's event channel
func (n *NotificationService) Send(ctx context.Context, req NotificationRequest) (*entities.Notification, error) {
	if req.PatientID == "" || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.NewValidationError("Patient ID, title, and message are required")
	}
	if req.Type == "" {
		req.Type = entities.NotificationInfo
	}
	if !req.Type.Valid() {
		return nil, apperrors.NewValidationError("invalid notification type")
	}

	notification := &entities.Notification{
		ID:        uuid.New().String(),
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Title:     req.Title,
		Message:   req.Message,
		Type:      req.Type,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.repo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}

	n.publish(ctx, providers.GetPatientChannel(notification.PatientID),
		entities.NewPortalEvent(entities.PortalEventNotificationCreated, notification.PatientID, notification))
	return notification, nil
}

// ListByPatient returns a patient's notifications newest first
func (n *NotificationService) ListByPatient(ctx context.Context, patientID string) ([]*entities.Notification, error) {
	if patientID == "" {
		return nil, apperrors.NewValidationError("Patient ID is required")
	}
	return n.repo.ListByPatient(ctx, patientID)
}

// MarkRead flags a notification as read
func (n *NotificationService) MarkRead(ctx context.Context, id string) (*entities.Notification, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("Notification ID is required")
	}
	return n.repo.MarkRead(ctx, id)
}
