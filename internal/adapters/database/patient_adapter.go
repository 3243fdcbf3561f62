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

var patientColumns = []interface{}{
	"id", "email", "name", "age", "gender", "known_conditions", "created_at", "updated_at",
}

// PatientAdapter implements the PatientRepository interface
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) repositories.PatientRepository {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Upsert inserts the patient or updates the row with the same email
func (a *PatientAdapter) Upsert(ctx context.Context, patient *entities.Patient) error {
	var age interface{}
	if patient.Age != nil {
		age = *patient.Age
	}

	query, args, err := a.db.Insert("patients").
		Rows(goqu.Record{
			"id":               patient.ID,
			"email":            patient.Email,
			"name":             patient.Name,
			"age":              age,
			"gender":           patient.Gender,
			"known_conditions": patient.KnownConditions,
			"created_at":       patient.CreatedAt,
			"updated_at":       patient.UpdatedAt,
		}).
		OnConflict(goqu.DoUpdate("email", goqu.Record{
			"name":             goqu.L("EXCLUDED.name"),
			"age":              goqu.L("EXCLUDED.age"),
			"gender":           goqu.L("EXCLUDED.gender"),
			"known_conditions": goqu.L("EXCLUDED.known_conditions"),
			"updated_at":       goqu.L("EXCLUDED.updated_at"),
		})).
		Returning("id", "created_at").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&patient.ID, &patient.CreatedAt); err != nil {
		return apperrors.NewInternalError("failed to upsert patient", err)
	}
	return nil
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From("patients").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient, err := scanPatient(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}
	return patient, nil
}

// List returns patients most recently updated first
func (a *PatientAdapter) List(ctx context.Context) ([]*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From("patients").
		Order(goqu.I("updated_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list patients", err)
	}
	defer rows.Close()

	patients := make([]*entities.Patient, 0)
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan patient", err)
		}
		patients = append(patients, patient)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate patients", err)
	}
	return patients, nil
}

func scanPatient(row rowScanner) (*entities.Patient, error) {
	patient := &entities.Patient{}
	var age sql.NullInt64
	if err := row.Scan(
		&patient.ID,
		&patient.Email,
		&patient.Name,
		&age,
		&patient.Gender,
		&patient.KnownConditions,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		patient.Age = &v
	}
	return patient, nil
}

// DoctorAdapter implements the DoctorRepository interface
type DoctorAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDoctorAdapter creates a new doctor adapter
func NewDoctorAdapter(client *postgres.Client) repositories.DoctorRepository {
	return &DoctorAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Upsert inserts the doctor or updates the row with the same email
func (a *DoctorAdapter) Upsert(ctx context.Context, doctor *entities.Doctor) error {
	query, args, err := a.db.Insert("doctors").
		Rows(goqu.Record{
			"id":         doctor.ID,
			"name":       doctor.Name,
			"email":      doctor.Email,
			"specialty":  doctor.Specialty,
			"created_at": doctor.CreatedAt,
			"updated_at": doctor.UpdatedAt,
		}).
		OnConflict(goqu.DoUpdate("email", goqu.Record{
			"name":       goqu.L("EXCLUDED.name"),
			"specialty":  goqu.L("EXCLUDED.specialty"),
			"updated_at": goqu.L("EXCLUDED.updated_at"),
		})).
		Returning("id", "created_at").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&doctor.ID, &doctor.CreatedAt); err != nil {
		return apperrors.NewInternalError("failed to upsert doctor", err)
	}
	return nil
}

// GetByID retrieves a doctor by ID
func (a *DoctorAdapter) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	query, args, err := a.db.Select("id", "name", "email", "specialty", "created_at", "updated_at").
		From("doctors").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	doctor := &entities.Doctor{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&doctor.ID, &doctor.Name, &doctor.Email, &doctor.Specialty, &doctor.CreatedAt, &doctor.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get doctor", err)
	}
	return doctor, nil
}

// List returns doctors ordered by name
func (a *DoctorAdapter) List(ctx context.Context) ([]*entities.Doctor, error) {
	query, args, err := a.db.Select("id", "name", "email", "specialty", "created_at", "updated_at").
		From("doctors").
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list doctors", err)
	}
	defer rows.Close()

	doctors := make([]*entities.Doctor, 0)
	for rows.Next() {
		doctor := &entities.Doctor{}
		if err := rows.Scan(
			&doctor.ID, &doctor.Name, &doctor.Email, &doctor.Specialty, &doctor.CreatedAt, &doctor.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan doctor", err)
		}
		doctors = append(doctors, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate doctors", err)
	}
	return doctors, nil
}
