package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yoockh/skillradar/internal/importer"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/services"
)

type importOptions struct {
	file  string
	apply bool
	out   string
}

func newImportCmd(kind string) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import-" + kind,
		Short: "Import " + kind + " from a CSV or XLSX file (dry-run unless --apply)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(opts.file)
			if err != nil {
				return err
			}
			defer f.Close()
			rows, err := importer.Parse(opts.file, f)
			if err != nil {
				return fmt.Errorf("read %s: %w", opts.file, err)
			}

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			svc := services.NewImportService(pgrepo.NewProfileRepo(e.db), pgrepo.NewLocationRepo(e.db), e.reports(), e.auth(), e.log)
			var out *services.ImportOutcome
			if kind == "users" {
				out, err = svc.Users(ctx, cliCaller, rows, !opts.apply)
			} else {
				out, err = svc.Locations(ctx, cliCaller, rows, !opts.apply)
			}
			if err != nil {
				return err
			}

			for _, r := range out.Results {
				switch {
				case !r.Success:
					fmt.Fprintf(cmd.OutOrStdout(), "ligne %d\t%s\tERREUR %s\n", r.RowIndex+1, r.Key, r.Error)
				case r.Warning != "":
					fmt.Fprintf(cmd.OutOrStdout(), "ligne %d\t%s\tATTENTION %s\n", r.RowIndex+1, r.Key, r.Warning)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d created=%d failed=%d dry_run=%t\n",
				out.Summary.Total, out.Summary.Created, out.Summary.Failed, out.DryRun)

			if opts.out != "" {
				b, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				return os.WriteFile(opts.out, b, 0o644)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "CSV or XLSX file (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Write to the database (default is dry-run)")
	cmd.Flags().StringVar(&opts.out, "out", "", "Write the full JSON report to this path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
