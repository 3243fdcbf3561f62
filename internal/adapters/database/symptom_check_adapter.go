package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/repositories"
	"github.com/medicrew/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

var symptomCheckColumns = []interface{}{
	"id", "patient_id", "patient_name", "symptoms", "duration",
	"additional_info", "ai_assessment", "status", "assigned_doctor", "created_at",
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// SymptomCheckAdapter implements the SymptomCheckRepository interface
type SymptomCheckAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSymptomCheckAdapter creates a new symptom check adapter
func NewSymptomCheckAdapter(client *postgres.Client) repositories.SymptomCheckRepository {
	return &SymptomCheckAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a new symptom check
func (a *SymptomCheckAdapter) Create(ctx context.Context, check *entities.SymptomCheck) error {
	assessment, err := json.Marshal(check.AIAssessment)
	if err != nil {
		return apperrors.NewInternalError("failed to encode assessment", err)
	}

	record := goqu.Record{
		"id":              check.ID,
		"patient_id":      check.PatientID,
		"patient_name":    check.PatientName,
		"symptoms":        pq.Array(check.Symptoms),
		"duration":        check.Duration,
		"additional_info": check.AdditionalInfo,
		"ai_assessment":   string(assessment),
		"status":          check.Status,
		"assigned_doctor": check.AssignedDoctor,
		"created_at":      check.CreatedAt,
	}

	query, args, err := a.db.Insert("symptom_checks").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create symptom check", err)
	}
	return nil
}

// GetByID retrieves a symptom check by ID
func (a *SymptomCheckAdapter) GetByID(ctx context.Context, id string) (*entities.SymptomCheck, error) {
	query, args, err := a.db.Select(symptomCheckColumns...).
		From("symptom_checks").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	check, err := scanSymptomCheck(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("symptom check with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get symptom check", err)
	}
	return check, nil
}

// List returns symptom checks newest first
func (a *SymptomCheckAdapter) List(ctx context.Context, filter repositories.SymptomCheckFilter) ([]*entities.SymptomCheck, error) {
	ds := a.db.Select(symptomCheckColumns...).From("symptom_checks")
	if filter.PatientID != "" {
		ds = ds.Where(goqu.Ex{"patient_id": filter.PatientID})
	}
	query, args, err := ds.Order(goqu.I("created_at").Desc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list symptom checks", err)
	}
	defer rows.Close()

	checks := make([]*entities.SymptomCheck, 0)
	for rows.Next() {
		check, err := scanSymptomCheck(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan symptom check", err)
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate symptom checks", err)
	}
	return checks, nil
}

// UpdateStatus advances a check's status inside a transaction so that
// concurrent reviewers cannot move it backwards.
func (a *SymptomCheckAdapter) UpdateStatus(ctx context.Context, id string, status entities.SymptomCheckStatus, assignedDoctor string) (*entities.SymptomCheck, error) {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := a.db.Select(symptomCheckColumns...).
		From("symptom_checks").
		Where(goqu.Ex{"id": id}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	check, err := scanSymptomCheck(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("symptom check with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get symptom check", err)
	}

	if !check.Status.CanAdvanceTo(status) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("cannot move symptom check from %s to %s", check.Status, status))
	}

	record := goqu.Record{"status": status}
	if assignedDoctor != "" {
		record["assigned_doctor"] = assignedDoctor
		check.AssignedDoctor = assignedDoctor
	}
	update, args, err := a.db.Update("symptom_checks").
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}
	if _, err := tx.ExecContext(ctx, update, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to update symptom check", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit symptom check update", err)
	}

	check.Status = status
	return check, nil
}

func scanSymptomCheck(row rowScanner) (*entities.SymptomCheck, error) {
	check := &entities.SymptomCheck{}
	var assessment []byte

	err := row.Scan(
		&check.ID,
		&check.PatientID,
		&check.PatientName,
		pq.Array(&check.Symptoms),
		&check.Duration,
		&check.AdditionalInfo,
		&assessment,
		&check.Status,
		&check.AssignedDoctor,
		&check.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(assessment) > 0 {
		if err := json.Unmarshal(assessment, &check.AIAssessment); err != nil {
			return nil, fmt.Errorf("failed to decode assessment: %w", err)
		}
	}
	if check.Symptoms == nil {
		check.Symptoms = []string{}
	}
	return check, nil
}

// Delete removes a symptom check
func (a *SymptomCheckAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("symptom_checks").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete symptom check", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("symptom check with id %s not found", id))
	}
	return nil
}
