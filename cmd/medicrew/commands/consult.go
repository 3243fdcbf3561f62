package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medicrew/backend/internal/adapters/providers/llm"
	"github.com/medicrew/backend/internal/app"
	"github.com/medicrew/backend/internal/application/orchestrator"
	"github.com/medicrew/backend/internal/application/services"
	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/pkg/config"
)

var (
	consultStream    bool
	consultPatientID string
	consultJSON      bool
)

// newGenerator is swapped in tests
var newGenerator = func(ctx context.Context, cfg *config.Config) providers.TextGenerator {
	return llm.NewTextGenerator(ctx, cfg, nil)
}

var consultCmd = &cobra.Command{
	Use:   "consult <symptoms>",
	Short: "Run a consultation over the given symptoms",
	Long: `Runs the full consultation (triage, GP, specialists, synthesis) and prints
the care recommendation. With --stream each agent's message is printed as
soon as its stage completes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConsult,
}

func init() {
	consultCmd.Flags().BoolVar(&consultStream, "stream", false, "Print agent messages as each stage completes")
	consultCmd.Flags().StringVar(&consultPatientID, "patient", "", "Save the consultation to this patient's history")
	consultCmd.Flags().BoolVar(&consultJSON, "json", false, "Print the final consultation state as JSON")
}

func runConsult(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repos, err := app.OpenRepositories(cfg)
	if err != nil {
		return err
	}
	defer repos.Close()

	orch := orchestrator.New(newGenerator(ctx, cfg), orchestrator.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	svc := services.NewConsultationService(orch, repos.Consultations, repos.Patients, repos.SymptomChecks)

	out := cmd.OutOrStdout()
	var emit orchestrator.EmitFunc
	if consultStream {
		emit = func(event orchestrator.StepEvent) error {
			printStep(out, event)
			return nil
		}
	}

	state, err := svc.Consult(ctx, strings.Join(args, " "), consultPatientID, emit)
	if err != nil {
		return err
	}

	if consultJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}
	if !consultStream {
		for _, msg := range state.Messages {
			printMessage(out, msg)
		}
	}
	printRecommendation(out, state)
	return nil
}

func printStep(w io.Writer, event orchestrator.StepEvent) {
	for _, msg := range event.Data.Messages {
		printMessage(w, msg)
	}
	if event.Data.UrgencyLevel != "" {
		fmt.Fprintf(w, "  urgency: %s\n", event.Data.UrgencyLevel)
	}
	if len(event.Data.RedFlags) > 0 {
		fmt.Fprintf(w, "  red flags: %s\n", strings.Join(event.Data.RedFlags, "; "))
	}
}

func printMessage(w io.Writer, msg entities.AgentMessage) {
	fmt.Fprintf(w, "== %s (%s)\n%s\n\n", msg.AgentName, msg.Role, strings.TrimSpace(msg.Content))
}

func printRecommendation(w io.Writer, state *entities.ConsultationState) {
	rec := state.Recommendation
	if rec == nil {
		return
	}
	fmt.Fprintf(w, "Recommendation: %s (%s)\n", rec.Urgency, rec.Timeframe)
	fmt.Fprintln(w, rec.Summary)
	for _, step := range rec.NextSteps {
		fmt.Fprintf(w, "  - %s\n", step)
	}
	if rec.SpecialistType != "" {
		fmt.Fprintf(w, "Specialist: %s\n", rec.SpecialistType)
	}
	if len(rec.QuestionsForDoctor) > 0 {
		fmt.Fprintln(w, "Questions for your doctor:")
		for _, q := range rec.QuestionsForDoctor {
			fmt.Fprintf(w, "  ? %s\n", q)
		}
	}
	fmt.Fprintf(w, "\n%s\n", rec.Disclaimer)
}
