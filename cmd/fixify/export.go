package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fixify-hostel/fixify-api/internal/dto"
	"github.com/fixify-hostel/fixify-api/internal/repository"
	"github.com/fixify-hostel/fixify-api/internal/service"
	"github.com/fixify-hostel/fixify-api/pkg/database"
)

const dateLayout = "2006-01-02"

func newExportCmd() *cobra.Command {
	var format, from, to, outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a complaints report to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := dto.ExportRequest{Format: format}
			var err error
			if req.From, err = parseDateFlag("from", from); err != nil {
				return err
			}
			if req.To, err = parseDateFlag("to", to); err != nil {
				return err
			}

			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			exporter := service.NewExportService(repository.NewComplaintRepository(db), displayLocation(cfg.Complaints.DisplayTimezone, logr), logr)
			file, err := exporter.Complaints(cmd.Context(), req)
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, file.Filename)
			if err := os.WriteFile(path, file.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			logr.Info("export written", zap.String("path", path), zap.Int("rows", file.Rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or pdf")
	cmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return &t, nil
}

func displayLocation(name string, logr *zap.Logger) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logr.Warn("unknown display timezone, using UTC", zap.String("timezone", name), zap.Error(err))
		return time.UTC
	}
	return loc
}
