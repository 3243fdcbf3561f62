package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medicrew/backend/internal/app"
	"github.com/medicrew/backend/internal/application/services"
	"github.com/medicrew/backend/internal/domain/entities"
)

// demoDoctors staff the dashboard for local runs. Registration is keyed by
// email so reseeding updates rather than duplicates.
var demoDoctors = []entities.Doctor{
	{Name: "Dr. Sarah Chen", Email: "sarah.chen@medicrew.example", Specialty: "General Practice"},
	{Name: "Dr. James Okafor", Email: "james.okafor@medicrew.example", Specialty: "Cardiology"},
	{Name: "Dr. Maria Santos", Email: "maria.santos@medicrew.example", Specialty: "Neurology"},
	{Name: "Dr. Priya Raman", Email: "priya.raman@medicrew.example", Specialty: "Dermatology"},
	{Name: "Dr. Tom Fischer", Email: "tom.fischer@medicrew.example", Specialty: "Gastroenterology"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register the demo doctors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		repos, err := app.OpenRepositories(cfg)
		if err != nil {
			return err
		}
		defer repos.Close()

		return seedDoctors(cmd, services.NewDoctorService(repos.Doctors))
	},
}

func seedDoctors(cmd *cobra.Command, doctors *services.DoctorService) error {
	for _, d := range demoDoctors {
		doctor := d
		saved, err := doctors.Register(cmd.Context(), &doctor)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", d.Email, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", saved.ID, saved.Name, saved.Specialty)
	}
	return nil
}
