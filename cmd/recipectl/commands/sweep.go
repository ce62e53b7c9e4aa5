package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	s3infra "github.com/ivankudzin/recipemarket/internal/infra/s3"
	"github.com/ivankudzin/recipemarket/internal/jobs/cleanup"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
	mediasvc "github.com/ivankudzin/recipemarket/internal/services/media"
)

func newSweepOrphansCmd(g *globals) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep-orphans",
		Short: "Delete stored blobs that no row references",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			s3Cfg := s3infra.Config{
				Endpoint:      cfg.S3.Endpoint,
				AccessKey:     cfg.S3.AccessKey,
				SecretKey:     cfg.S3.SecretKey,
				UseSSL:        cfg.S3.UseSSL,
				PublicBaseURL: cfg.S3.PublicBaseURL,
			}
			client, err := s3infra.NewClient(s3Cfg)
			if err != nil {
				return fmt.Errorf("connect s3: %w", err)
			}
			storage := mediasvc.NewS3Storage(client, cfg.S3.Bucket, s3infra.PublicBaseURL(s3Cfg, cfg.S3.Bucket))

			job := cleanup.NewOrphanSweepJob(storage, pgrepo.NewMediaRefRepo(pool), cfg.Cleanup.OrphanRetention, log)
			job.DryRun(dryRun)

			report, err := job.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d deleted=%d failed=%d dry_run=%v\n",
				report.Scanned, report.Deleted, report.Failed, dryRun)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report orphans without deleting them")
	return cmd
}
