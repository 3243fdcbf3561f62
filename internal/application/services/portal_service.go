package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/domain/repositories"
	"github.com/medicrew/backend/internal/infrastructure/observability"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// insightsTTL bounds how long a case's generated insights are reused
const insightsTTL = 3600

// Assessor produces the single-call AI assessments used by the portal
type Assessor interface {
	AnalyzeSymptoms(ctx context.Context, symptoms []string, duration, additionalInfo string) (entities.AIAssessment, error)
	GenerateInsights(ctx context.Context, check *entities.SymptomCheck) (entities.DoctorInsights, error)
	GenerateTreatmentPlan(ctx context.Context, diagnosis string, symptoms []string) (entities.TreatmentPlanSuggestion, error)
}

// SymptomCheckRequest is a patient's portal submission
type SymptomCheckRequest struct {
	PatientID      string   `json:"patientId"`
	PatientName    string   `json:"patientName"`
	Symptoms       []string `json:"symptoms"`
	Duration       string   `json:"duration"`
	AdditionalInfo string   `json:"additionalInfo,omitempty"`
}

// DoctorNoteRequest is a clinician's response to a symptom check
type DoctorNoteRequest struct {
	SymptomCheckID string `json:"symptomCheckId"`
	DoctorID       string `json:"doctorId"`
	DoctorName     string `json:"doctorName"`
	Diagnosis      string `json:"diagnosis"`
	Treatment      string `json:"treatment,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// CaseInsights bundles decision support for one symptom check
type CaseInsights struct {
	Insights      entities.DoctorInsights          `json:"insights"`
	TreatmentPlan entities.TreatmentPlanSuggestion `json:"treatmentPlan"`
}

// PortalService runs the patient portal and doctor dashboard workflow
type PortalService struct {
	eventPublisher
	checks   repositories.SymptomCheckRepository
	notes    repositories.DoctorNoteRepository
	queue    *QueueService
	assessor Assessor
	cache    providers.CacheProvider
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewPortalService creates a new portal service. cache may be nil.
func NewPortalService(
	checks repositories.SymptomCheckRepository,
	notes repositories.DoctorNoteRepository,
	queue *QueueService,
	assessor Assessor,
	cache providers.CacheProvider,
) *PortalService {
	return &PortalService{
		checks:   checks,
		notes:    notes,
		queue:    queue,
		assessor: assessor,
		cache:    cache,
		now:      time.Now,
	}
}

// SubmitSymptomCheck assesses the symptoms, stores the check and queues the patient
func (s *PortalService) SubmitSymptomCheck(ctx context.Context, req SymptomCheckRequest) (*entities.SymptomCheck, error) {
	symptoms := make([]string, 0, len(req.Symptoms))
	for _, symptom := range req.Symptoms {
		if symptom = strings.TrimSpace(symptom); symptom != "" {
			symptoms = append(symptoms, symptom)
		}
	}
	req.Duration = strings.TrimSpace(req.Duration)
	if req.PatientID == "" || req.PatientName == "" || len(symptoms) == 0 || req.Duration == "" {
		return nil, apperrors.NewValidationError("patientId, patientName, symptoms (array), and duration are required")
	}

	assessment, err := s.assessor.AnalyzeSymptoms(ctx, symptoms, req.Duration, req.AdditionalInfo)
	if err != nil {
		return nil, err
	}

	check := &entities.SymptomCheck{
		ID:             uuid.New().String(),
		PatientID:      req.PatientID,
		PatientName:    req.PatientName,
		Symptoms:       symptoms,
		Duration:       req.Duration,
		AdditionalInfo: req.AdditionalInfo,
		AIAssessment:   assessment,
		Status:         entities.SymptomCheckPending,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.checks.Create(ctx, check); err != nil {
		return nil, fmt.Errorf("failed to save symptom check: %w", err)
	}

	if _, err := s.queue.Enqueue(ctx, check.PatientID, check.PatientName, assessment.UrgencyLevel, check.ID); err != nil {
		// a check nobody is queued for would never be seen by a doctor
		if delErr := s.checks.Delete(ctx, check.ID); delErr != nil {
			observability.LoggerFromContext(ctx).Error().Err(delErr).
				Str("symptom_check_id", check.ID).
				Msg("failed to remove unqueued symptom check")
		}
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("symptom_check_id", check.ID).
		Str("urgency", string(assessment.UrgencyLevel)).
		Msg("symptom check submitted")
	s.publishPortal(ctx, entities.NewPortalEvent(entities.PortalEventSymptomCheckCreated, check.PatientID, check))
	return check, nil
}

// GetSymptomCheck returns one check
func (s *PortalService) GetSymptomCheck(ctx context.Context, id string) (*entities.SymptomCheck, error) {
	return s.checks.GetByID(ctx, id)
}

// ListSymptomChecks returns checks newest first, optionally for one patient
func (s *PortalService) ListSymptomChecks(ctx context.Context, patientID string) ([]*entities.SymptomCheck, error) {
	return s.checks.List(ctx, repositories.SymptomCheckFilter{PatientID: patientID})
}

// ListDoctorNotes returns the notes written for a check, newest first
func (s *PortalService) ListDoctorNotes(ctx context.Context, symptomCheckID string) ([]*entities.DoctorNote, error) {
	if _, err := s.checks.GetByID(ctx, symptomCheckID); err != nil {
		return nil, err
	}
	return s.notes.ListBySymptomCheck(ctx, symptomCheckID)
}

// AddDoctorNote records the doctor's response and completes the check and its queue item
func (s *PortalService) AddDoctorNote(ctx context.Context, req DoctorNoteRequest) (*entities.DoctorNote, error) {
	if req.SymptomCheckID == "" || req.DoctorID == "" || req.DoctorName == "" || strings.TrimSpace(req.Diagnosis) == "" {
		return nil, apperrors.NewValidationError("symptomCheckId, doctorId, doctorName and diagnosis are required")
	}
	if _, err := s.checks.GetByID(ctx, req.SymptomCheckID); err != nil {
		return nil, err
	}

	note := &entities.DoctorNote{
		ID:             uuid.New().String(),
		SymptomCheckID: req.SymptomCheckID,
		DoctorID:       req.DoctorID,
		DoctorName:     req.DoctorName,
		Diagnosis:      req.Diagnosis,
		Treatment:      req.Treatment,
		Notes:          req.Notes,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to save doctor note: %w", err)
	}

	check, err := s.checks.UpdateStatus(ctx, req.SymptomCheckID, entities.SymptomCheckCompleted, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if err := s.queue.AdvanceForCheck(ctx, check.ID, entities.QueueCompleted); err != nil {
		return nil, err
	}

	s.publishPortal(ctx, entities.NewPortalEvent(entities.PortalEventSymptomCheckUpdated, check.PatientID, check))
	s.publishPortal(ctx, entities.NewPortalEvent(entities.PortalEventDoctorNoteCreated, check.PatientID, note))
	return note, nil
}

// CaseInsights returns AI decision support for a check. When doctorID is set
// the check is assigned to that doctor and moved into review.
func (s *PortalService) CaseInsights(ctx context.Context, symptomCheckID, doctorID string) (*CaseInsights, error) {
	if symptomCheckID == "" {
		return nil, apperrors.NewValidationError("symptomCheckId is required")
	}
	check, err := s.checks.GetByID(ctx, symptomCheckID)
	if err != nil {
		return nil, err
	}

	result, err := s.cachedInsights(ctx, check)
	if err != nil {
		return nil, err
	}

	if doctorID != "" && check.Status.CanAdvanceTo(entities.SymptomCheckInReview) {
		updated, err := s.checks.UpdateStatus(ctx, check.ID, entities.SymptomCheckInReview, doctorID)
		if err != nil {
			return nil, err
		}
		if err := s.queue.AdvanceForCheck(ctx, check.ID, entities.QueueInProgress); err != nil {
			return nil, err
		}
		s.publishPortal(ctx, entities.NewPortalEvent(entities.PortalEventSymptomCheckUpdated, updated.PatientID, updated))
	}
	return result, nil
}

// SetMetrics enables insight cache hit/miss counting
func (s *PortalService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

func (s *PortalService) cachedInsights(ctx context.Context, check *entities.SymptomCheck) (*CaseInsights, error) {
	key := InsightsCacheKey(check.ID)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var cached CaseInsights
			if json.Unmarshal(data, &cached) == nil {
				observability.RecordCacheLookup(ctx, s.metrics, "insights", true)
				return &cached, nil
			}
		}
		observability.RecordCacheLookup(ctx, s.metrics, "insights", false)
	}

	insights, err := s.assessor.GenerateInsights(ctx, check)
	if err != nil {
		return nil, err
	}
	plan, err := s.assessor.GenerateTreatmentPlan(ctx, primaryDiagnosis(check.AIAssessment), check.Symptoms)
	if err != nil {
		return nil, err
	}
	result := &CaseInsights{Insights: insights, TreatmentPlan: plan}

	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, data, insightsTTL); err != nil {
				observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to cache case insights")
			}
		}
	}
	return result, nil
}

// Statistics summarises the dashboard. Daily counts use the server's local day.
func (s *PortalService) Statistics(ctx context.Context) (*entities.PortalStatistics, error) {
	checks, err := s.checks.List(ctx, repositories.SymptomCheckFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list symptom checks: %w", err)
	}
	items, err := s.queue.ListOrderedByUrgency(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := &entities.PortalStatistics{}
	for _, check := range checks {
		today := !check.CreatedAt.Before(startOfDay)
		if today {
			stats.TotalChecksToday++
		}
		switch check.Status {
		case entities.SymptomCheckPending:
			stats.PendingReviews++
		case entities.SymptomCheckInReview:
			stats.InReview++
		case entities.SymptomCheckCompleted:
			if today {
				stats.CompletedToday++
			}
		}
		if check.AIAssessment.UrgencyLevel == entities.UrgencyCritical {
			stats.CriticalCases++
		}
	}

	total := 0
	for _, item := range items {
		total += item.EstimatedWaitTime
	}
	stats.AverageWaitTime = int(math.Round(float64(total) / float64(max(len(items), 1))))
	return stats, nil
}

// InsightsCacheKey is the cache key for a check's generated insights
func InsightsCacheKey(symptomCheckID string) string {
	return "insights:" + symptomCheckID
}

func primaryDiagnosis(assessment entities.AIAssessment) string {
	if len(assessment.PossibleConditions) == 0 {
		return ""
	}
	return assessment.PossibleConditions[0]
}
