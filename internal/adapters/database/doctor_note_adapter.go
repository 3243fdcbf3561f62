package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/repositories"
	"github.com/medicrew/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// DoctorNoteAdapter implements the DoctorNoteRepository interface
type DoctorNoteAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDoctorNoteAdapter creates a new doctor note adapter
func NewDoctorNoteAdapter(client *postgres.Client) repositories.DoctorNoteRepository {
	return &DoctorNoteAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a doctor note
func (a *DoctorNoteAdapter) Create(ctx context.Context, note *entities.DoctorNote) error {
	query, args, err := a.db.Insert("doctor_notes").Rows(goqu.Record{
		"id":               note.ID,
		"symptom_check_id": note.SymptomCheckID,
		"doctor_id":        note.DoctorID,
		"doctor_name":      note.DoctorName,
		"diagnosis":        note.Diagnosis,
		"treatment":        note.Treatment,
		"notes":            note.Notes,
		"created_at":       note.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create doctor note", err)
	}
	return nil
}

// ListBySymptomCheck returns notes for a check newest first
func (a *DoctorNoteAdapter) ListBySymptomCheck(ctx context.Context, symptomCheckID string) ([]*entities.DoctorNote, error) {
	query, args, err := a.db.Select(
		"id", "symptom_check_id", "doctor_id", "doctor_name",
		"diagnosis", "treatment", "notes", "created_at",
	).From("doctor_notes").
		Where(goqu.Ex{"symptom_check_id": symptomCheckID}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list doctor notes", err)
	}
	defer rows.Close()

	notes := make([]*entities.DoctorNote, 0)
	for rows.Next() {
		note := &entities.DoctorNote{}
		if err := rows.Scan(
			&note.ID,
			&note.SymptomCheckID,
			&note.DoctorID,
			&note.DoctorName,
			&note.Diagnosis,
			&note.Treatment,
			&note.Notes,
			&note.CreatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan doctor note", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate doctor notes", err)
	}
	return notes, nil
}
