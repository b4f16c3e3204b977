package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/RealHAPPY4/impunity-protocol-sim/internal/config"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/domain/icu"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/domain/sessionlog"
	"github.com/RealHAPPY4/impunity-protocol-sim/internal/platform/db"
	"github.com/RealHAPPY4/impunity-protocol-sim/migrations"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "icusim",
		Short:        "ICU emergency protocol simulator",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(simulateCmd())
	root.AddCommand(casesCmd())
	root.AddCommand(migrateCmd())
	return root
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the simulator API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func casesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cases",
		Short: "List the supported emergency cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCases(cmd.OutOrStdout())
		},
	}
}

func printCases(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTOPIC\tHR\tSPO2\tGLUCOSE\tMOVEMENT\tCRITICAL")
	for _, c := range icu.CaseSummaries() {
		v, p := icu.GetVitals(c.ID), icu.GetProtocol(c.ID)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%t\t%t\n",
			c.ID, c.Title, p.Topic, v.HeartRate, v.Oxygen, v.Glucose, v.Movement, c.Critical)
	}
	return tw.Flush()
}

func simulateCmd() *cobra.Command {
	var (
		caseID    int
		patientID string
		age       int
		asJSON    bool
		record    bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one case against a patient profile and print the protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			var agePtr *int
			if cmd.Flags().Changed("age") {
				agePtr = &age
			}

			var recorder icu.SessionRecorder
			if record {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				recorder = sessionlog.NewService(sessionlog.NewCSVRepo(cfg.SessionLogPath))
			}
			svc := icu.NewService(icu.NewPatientRegistry(icu.DefaultPatients()), recorder, nil)
			res, err := svc.Simulate(cmd.Context(), caseID, patientID, agePtr)
			if err != nil {
				return err
			}
			return printSession(cmd.OutOrStdout(), res, asJSON)
		},
	}
	cmd.Flags().IntVar(&caseID, "case", 1, "Case id")
	cmd.Flags().StringVar(&patientID, "patient", "PT-1001", "Patient id")
	cmd.Flags().IntVar(&age, "age", 0, "Override the patient age (1-120)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the session as JSON")
	cmd.Flags().BoolVar(&record, "record", false, "Append the session to the session log")
	return cmd
}

func printSession(out io.Writer, res icu.SessionResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	p := res.Protocol
	fmt.Fprintf(out, "%s\n%s\n\n", p.Title, strings.Repeat("=", len(p.Title)))
	fmt.Fprintf(out, "Patient:  %s (age %d)\n", res.Patient.ID, res.Patient.Age)
	fmt.Fprintf(out, "Topic:    %s\n", p.Topic)
	fmt.Fprintf(out, "Vitals:   HR %d bpm, SpO2 %d%%, glucose %d mg/dL, movement %t\n",
		res.Vitals.HeartRate, res.Vitals.Oxygen, res.Vitals.Glucose, res.Vitals.Movement)
	fmt.Fprintf(out, "Risk:     %s (%d)\n\n", res.Risk.Label(), int(res.Risk))
	fmt.Fprintf(out, "%s\n\n", p.Explanation)
	for i, a := range p.Actions {
		fmt.Fprintf(out, "%d. %s\n", i+1, a)
	}
	if res.Vitals.Alarming() {
		fmt.Fprintln(out, "\nCRITICAL ALERT: vitals outside safe range")
	}
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the optional Postgres session log schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrationStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})
	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *db.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrations")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, migrations.FS, "."))
}

func printMigrationStatus(out io.Writer, statuses []db.MigrationStatus) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, appliedAt)
	}
	tw.Flush()
}
