package main

import (
	"github.com/spf13/cobra"

	"github.com/yoockh/skillradar/config"
)

func newMigrateCmd() *cobra.Command {
	var mongoIndexes bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the relational schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := config.Migrate(e.db); err != nil {
				return err
			}
			e.log.Info("schema up to date")

			if mongoIndexes && e.cfg.MongoURI != "" {
				if err := config.InitMongo(e.cfg.MongoURI); err != nil {
					return err
				}
				if err := config.EnsureMongoIndexes(e.cfg.MongoDB); err != nil {
					return err
				}
				e.log.Info("mongo indexes up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&mongoIndexes, "mongo", true, "Also ensure MongoDB indexes when MONGO_URI is set")
	return cmd
}
