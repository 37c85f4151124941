package main

import (
	"ProjectIVR/internal/exporter"
	"ProjectIVR/pkg/s3"
	"ProjectIVR/pkg/smtp"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	exportDir     string
	exportPublish bool
	keepDays      int
)

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default EXPORT_DIR)")
	exportCmd.Flags().BoolVar(&exportPublish, "publish", false, "upload and announce the file like the scheduled job")
	cleanupCmd.Flags().StringVar(&exportDir, "dir", "", "export directory (default EXPORT_DIR)")
	cleanupCmd.Flags().IntVar(&keepDays, "keep-days", -1, "remove files older than this many days (default EXPORT_KEEP_DAYS)")
	rootCmd.AddCommand(exportCmd, cleanupCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a consent export file now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		logger := newLogger()

		source, db, err := openCalls(logger)
		if err != nil {
			return err
		}
		defer db.Close()

		var opts []exporter.Option
		if exportPublish {
			if settings.ExportS3 {
				client, err := s3.New()
				if err != nil {
					return fmt.Errorf("create S3 client: %w", err)
				}
				opts = append(opts, exporter.WithPublishers(exporter.NewUploadPublisher(client, settings.ExportS3Prefix)))
			}
			if len(settings.ExportNotify) > 0 {
				opts = append(opts, exporter.WithPublishers(exporter.NewNotifyPublisher(smtp.New(), settings.ExportNotify)))
			}
		}

		e := exporter.New(source, dirOr(settings.ExportDir), logger, opts...)
		res, err := e.Run(cmd.Context())
		if err != nil {
			return err
		}
		if res.Path == "" {
			fmt.Println("No consent records to export.")
			return nil
		}
		fmt.Printf("Wrote %d record(s) to %s\n", res.Records, res.Path)
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old consent export files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		if keepDays < 0 {
			keepDays = settings.ExportKeepDays
		}

		e := exporter.New(nil, dirOr(settings.ExportDir), newLogger())
		removed, err := e.Cleanup(cmd.Context(), keepDays)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d export file(s) older than %d day(s) from %s\n", removed, keepDays, e.Dir())
		return nil
	},
}

func dirOr(fallback string) string {
	if exportDir != "" {
		return exportDir
	}
	return fallback
}
