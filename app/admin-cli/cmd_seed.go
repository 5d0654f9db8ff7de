package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/services"
)

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load locations, qualifiers, modules and job profiles from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			seed, err := ReadSeed(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			db := e.db
			scores := e.scores()
			taxonomyRepo := pgrepo.NewTaxonomyRepo(db)
			qualifierRepo := pgrepo.NewQualifierRepo(db)
			s := &seeder{
				locations:   services.NewLocationService(pgrepo.NewLocationRepo(db)),
				taxonomy:    services.NewTaxonomyService(taxonomyRepo, scores),
				qualifiers:  services.NewQualifierService(qualifierRepo, scores),
				jobProfiles: services.NewJobProfileService(pgrepo.NewJobProfileRepo(db), taxonomyRepo, qualifierRepo, scores),
				caller:      cliCaller,
			}
			stats, err := s.Apply(cmd.Context(), seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed applied: created=%d skipped=%d\n", stats.Created, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "configs/seed.yaml", "Seed file")
	return cmd
}
