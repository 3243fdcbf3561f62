// Package orchestrator runs the MediCrew consultation team: a fixed
// triage → gp → specialist → synthesize sequence of model calls whose
// replies are reduced into a ConsultationState.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/observability"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

// Flow names label spans and metrics.
const (
	FlowPatient  = "patient"
	FlowClinical = "clinical"
)

// maxSpecialists caps the specialist stage.
const maxSpecialists = 2

// StepEvent is one completed stage, as streamed to clients.
type StepEvent struct {
	Step string               `json:"step"`
	Data entities.StateUpdate `json:"data"`
}

// EmitFunc receives each stage result as soon as it is merged. Returning an
// error stops the run.
type EmitFunc func(StepEvent) error

// Options are the generation settings applied to every call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Orchestrator sequences the consultation stages against a text generator.
type Orchestrator struct {
	generator     providers.TextGenerator
	opts          Options
	metrics       *observability.Metrics
	domainMetrics *observability.DomainMetrics
}

// New creates an orchestrator.
func New(generator providers.TextGenerator, opts Options) *Orchestrator {
	return &Orchestrator{generator: generator, opts: opts}
}

// SetMetrics attaches OpenTelemetry and Prometheus instruments. Either may be nil.
func (o *Orchestrator) SetMetrics(metrics *observability.Metrics, domainMetrics *observability.DomainMetrics) {
	o.metrics = metrics
	o.domainMetrics = domainMetrics
}

type stageFunc func(ctx context.Context, state *entities.ConsultationState) (entities.StateUpdate, error)

type flow struct {
	name       string
	triage     stageFunc
	gp         stageFunc
	specialist stageFunc
	synthesize stageFunc
}

func (f flow) stage(step entities.ConsultationStep) stageFunc {
	switch step {
	case entities.StepTriage:
		return f.triage
	case entities.StepGP:
		return f.gp
	case entities.StepSpecialist:
		return f.specialist
	case entities.StepSynthesize:
		return f.synthesize
	default:
		return nil
	}
}

// nextStep routes the consultation after step has been merged into state.
func nextStep(step entities.ConsultationStep, state *entities.ConsultationState) entities.ConsultationStep {
	switch step {
	case entities.StepTriage:
		if state.UrgencyLevel == entities.UrgencyCritical {
			return entities.StepSynthesize
		}
		return entities.StepGP
	case entities.StepGP:
		if len(entities.SpecialistRoles(state.RelevantSpecialties)) > 0 {
			return entities.StepSpecialist
		}
		return entities.StepSynthesize
	case entities.StepSpecialist:
		return entities.StepSynthesize
	default:
		return entities.StepComplete
	}
}

// run drives state from its current step to completion. Partial state is
// discarded by callers on error.
func (o *Orchestrator) run(ctx context.Context, f flow, state *entities.ConsultationState, emit EmitFunc) error {
	logger := observability.LoggerFromContext(ctx)
	ctx, span := observability.StartSpan(ctx, "consultation."+f.name)
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("consultation.session_id", state.SessionID))

	step := state.CurrentStep
	for step != entities.StepComplete {
		if err := ctx.Err(); err != nil {
			o.finish(f.name, err)
			return err
		}

		fn := f.stage(step)
		if fn == nil {
			err := apperrors.NewInternalError("unknown consultation step "+string(step), nil)
			o.finish(f.name, err)
			return err
		}

		update, err := o.runStage(ctx, f.name, step, fn, state)
		if err != nil {
			logger.Error().Err(err).Str("flow", f.name).Str("step", string(step)).Msg("consultation stage failed")
			observability.RecordError(span, err)
			o.finish(f.name, err)
			return err
		}

		update.CurrentStep = ""
		if err := state.Apply(update); err != nil {
			o.finish(f.name, err)
			return apperrors.NewInternalError("failed to merge consultation stage", err)
		}
		next := nextStep(step, state)
		if err := state.Apply(entities.StateUpdate{CurrentStep: next}); err != nil {
			o.finish(f.name, err)
			return apperrors.NewInternalError("failed to advance consultation", err)
		}
		update.CurrentStep = next

		if emit != nil {
			if err := emit(StepEvent{Step: string(step), Data: update}); err != nil {
				o.finish(f.name, err)
				return err
			}
		}
		step = next
	}

	o.finish(f.name, nil)
	logger.Info().
		Str("flow", f.name).
		Str("session_id", state.SessionID).
		Str("urgency", string(state.UrgencyLevel)).
		Int("messages", len(state.Messages)).
		Msg("consultation complete")
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, flowName string, step entities.ConsultationStep, fn stageFunc, state *entities.ConsultationState) (entities.StateUpdate, error) {
	ctx, span := observability.StartSpan(ctx, "consultation."+flowName+"."+string(step))
	defer span.End()

	start := time.Now()
	update, err := fn(ctx, state)
	observability.RecordStageMetric(ctx, o.metrics, flowName, string(step), time.Since(start), err)
	observability.RecordError(span, err)
	return update, err
}

func (o *Orchestrator) finish(flowName string, err error) {
	outcome := "completed"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
	default:
		outcome = "error"
	}
	o.domainMetrics.ObserveConsultation(flowName, outcome)
}

// generate sends one prompt pair with the orchestrator's settings.
func (o *Orchestrator) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reply, err := o.generator.Generate(ctx, providers.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  o.opts.Temperature,
		MaxTokens:    o.opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// fallback records that a stage used its default record.
func (o *Orchestrator) fallback(ctx context.Context, flowName, stage string, err error) {
	o.domainMetrics.ObserveFallback(flowName, stage)
	observability.LoggerFromContext(ctx).Debug().
		Err(err).
		Str("flow", flowName).
		Str("stage", stage).
		Msg("model reply not usable, using default record")
}

// consultSpecialists asks up to maxSpecialists specialists in order. Each
// sees the transcript including earlier specialists in this stage.
func (o *Orchestrator) consultSpecialists(
	ctx context.Context,
	state *entities.ConsultationState,
	systemPrompt func(entities.AgentDefinition) string,
	userPrompt func(messages []entities.AgentMessage, agent entities.AgentDefinition) string,
) ([]entities.AgentMessage, error) {
	roles := entities.SpecialistRoles(state.RelevantSpecialties)
	if len(roles) > maxSpecialists {
		roles = roles[:maxSpecialists]
	}

	messages := make([]entities.AgentMessage, 0, len(roles))
	for _, role := range roles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		agent := role.Definition()
		transcript := append(append([]entities.AgentMessage{}, state.Messages...), messages...)

		reply, err := o.generate(ctx, systemPrompt(agent), userPrompt(transcript, agent))
		if err != nil {
			return nil, err
		}
		messages = append(messages, entities.NewAgentMessage(role, reply))
	}
	return messages, nil
}
