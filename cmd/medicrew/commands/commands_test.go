package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicrew/backend/internal/adapters/memory"
	"github.com/medicrew/backend/internal/application/orchestrator"
	"github.com/medicrew/backend/internal/application/services"
	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/pkg/config"
)

type proseGenerator struct{}

func (proseGenerator) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	return "Rest, drink fluids and see your GP if it persists.", nil
}

func (proseGenerator) Name() string { return "prose" }

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORAGE_DRIVER", "memory")

	original := newGenerator
	newGenerator = func(ctx context.Context, cfg *config.Config) providers.TextGenerator { return proseGenerator{} }
	t.Cleanup(func() {
		newGenerator = original
		consultStream, consultJSON, consultPatientID = false, false, ""
	})

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConsultCommand(t *testing.T) {
	t.Run("prints messages and recommendation", func(t *testing.T) {
		out, err := runCLI(t, "consult", "mild", "headache")
		require.NoError(t, err)
		assert.Contains(t, out, "(triage)")
		assert.Contains(t, out, "Recommendation:")
		assert.Contains(t, out, entities.CareDisclaimer)
	})

	t.Run("json state", func(t *testing.T) {
		out, err := runCLI(t, "consult", "--json", "sore throat")
		require.NoError(t, err)

		var state entities.ConsultationState
		require.NoError(t, json.Unmarshal([]byte(out), &state))
		assert.Equal(t, "sore throat", state.Symptoms)
		assert.Equal(t, entities.StepComplete, state.CurrentStep)
	})

	t.Run("requires symptoms", func(t *testing.T) {
		_, err := runCLI(t, "consult")
		assert.Error(t, err)
	})

	t.Run("unknown patient", func(t *testing.T) {
		_, err := runCLI(t, "consult", "--patient", "nobody", "cough")
		assert.Error(t, err)
	})
}

func TestPrintStep(t *testing.T) {
	buf := new(bytes.Buffer)
	printStep(buf, orchestrator.StepEvent{
		Step: "triage",
		Data: entities.StateUpdate{
			Messages:     []entities.AgentMessage{entities.NewAgentMessage(entities.RoleTriage, "  Assessing now.  ")},
			UrgencyLevel: entities.UrgencyHigh,
			RedFlags:     []string{"chest pain", "shortness of breath"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "(triage)\nAssessing now.\n")
	assert.Contains(t, out, "urgency: high")
	assert.Contains(t, out, "red flags: chest pain; shortness of breath")
}

func TestSeedDoctors(t *testing.T) {
	store := memory.NewDoctorStore()
	doctors := services.NewDoctorService(store)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	out := new(bytes.Buffer)
	cmd.SetOut(out)

	require.NoError(t, seedDoctors(cmd, doctors))
	require.NoError(t, seedDoctors(cmd, doctors))

	listed, err := doctors.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, listed, len(demoDoctors), "reseeding updates by email")
	assert.Equal(t, 2*len(demoDoctors), strings.Count(out.String(), "\n"))
}
