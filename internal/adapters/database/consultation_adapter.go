package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/repositories"
	"github.com/medicrew/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// ConsultationAdapter implements the ConsultationRepository interface
type ConsultationAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewConsultationAdapter creates a new consultation adapter
func NewConsultationAdapter(client *postgres.Client) repositories.ConsultationRepository {
	return &ConsultationAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a finished consultation
func (a *ConsultationAdapter) Create(ctx context.Context, record *entities.ConsultationRecord) error {
	redFlags := record.RedFlags
	if redFlags == nil {
		redFlags = []string{}
	}
	flagsJSON, err := json.Marshal(redFlags)
	if err != nil {
		return apperrors.NewInternalError("failed to encode red flags", err)
	}

	var recommendation interface{}
	if record.Recommendation != nil {
		data, err := json.Marshal(record.Recommendation)
		if err != nil {
			return apperrors.NewInternalError("failed to encode recommendation", err)
		}
		recommendation = string(data)
	}

	query, args, err := a.db.Insert("consultations").Rows(goqu.Record{
		"id":                  record.ID,
		"patient_id":          record.PatientID,
		"symptoms":            record.Symptoms,
		"urgency_level":       record.UrgencyLevel,
		"red_flags":           string(flagsJSON),
		"triage_response":     record.TriageResponse,
		"gp_response":         record.GPResponse,
		"specialist_response": record.SpecialistResponse,
		"recommendation":      recommendation,
		"created_at":          record.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create consultation", err)
	}
	return nil
}

// ListByPatient returns a patient's consultations newest first
func (a *ConsultationAdapter) ListByPatient(ctx context.Context, patientID string) ([]*entities.ConsultationRecord, error) {
	query, args, err := a.db.Select(
		"id", "patient_id", "symptoms", "urgency_level", "red_flags",
		"triage_response", "gp_response", "specialist_response", "recommendation", "created_at",
	).From("consultations").
		Where(goqu.Ex{"patient_id": patientID}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list consultations", err)
	}
	defer rows.Close()

	records := make([]*entities.ConsultationRecord, 0)
	for rows.Next() {
		record := &entities.ConsultationRecord{}
		var redFlags, recommendation []byte
		if err := rows.Scan(
			&record.ID,
			&record.PatientID,
			&record.Symptoms,
			&record.UrgencyLevel,
			&redFlags,
			&record.TriageResponse,
			&record.GPResponse,
			&record.SpecialistResponse,
			&recommendation,
			&record.CreatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan consultation", err)
		}
		if err := decodeConsultationJSON(record, redFlags, recommendation); err != nil {
			return nil, apperrors.NewInternalError("failed to decode consultation", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate consultations", err)
	}
	return records, nil
}

func decodeConsultationJSON(record *entities.ConsultationRecord, redFlags, recommendation []byte) error {
	record.RedFlags = []string{}
	if len(redFlags) > 0 {
		if err := json.Unmarshal(redFlags, &record.RedFlags); err != nil {
			return fmt.Errorf("red flags: %w", err)
		}
	}
	if len(recommendation) > 0 {
		record.Recommendation = &entities.CareRecommendation{}
		if err := json.Unmarshal(recommendation, record.Recommendation); err != nil {
			return fmt.Errorf("recommendation: %w", err)
		}
	}
	return nil
}
