// Carectl is the operator command line for carepath: offline rule checks,
// lab report extraction and session maintenance.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carepath/internal/cfg"
	"github.com/linnemanlabs/carepath/internal/decision"
	"github.com/linnemanlabs/carepath/internal/intake"
	"github.com/linnemanlabs/carepath/internal/labs"
	"github.com/linnemanlabs/carepath/internal/lifecycle"
	"github.com/linnemanlabs/carepath/internal/rx"
	"github.com/linnemanlabs/carepath/internal/sessionstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "carectl",
		Short:        "Carepath operator tools",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(rxCmd())
	rootCmd.AddCommand(labsCmd())
	rootCmd.AddCommand(decideCmd())
	rootCmd.AddCommand(sweepCmd())
	return rootCmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rx [current-med ...]",
		Short: "Screen a new prescription against current medications",
		RunE: func(cmd *cobra.Command, args []string) error {
			candidate, _ := cmd.Flags().GetString("new")
			pregnant, _ := cmd.Flags().GetBool("pregnant")
			if len(args) == 0 && candidate == "" {
				return fmt.Errorf("at least one medication is required")
			}

			checker := rx.NewChecker(log.Nop(), rx.CheckerHooks{})
			rep := checker.Check(cmd.Context(), rx.Request{
				CurrentMeds: args,
				Candidate:   candidate,
				Pregnant:    pregnant,
			})
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().String("new", "", "Candidate prescription; omit to screen current medications pairwise")
	cmd.Flags().Bool("pregnant", false, "Include pregnancy contraindications")
	return cmd
}

func labsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labs [file]",
		Short: "Extract lab values from a report (reads stdin when no file or \"-\" is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open report: %w", err)
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			text, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), labs.Extract(string(text)))
		},
	}
}

func decideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decide [symptom text]",
		Short: "Evaluate symptoms with the deterministic decision engine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := decision.Input{Text: strings.Join(args, " ")}
			flags := cmd.Flags()
			if flags.Changed("age") {
				v, _ := flags.GetInt("age")
				in.AgeYears = &v
			}
			if flags.Changed("severity") {
				v, _ := flags.GetInt("severity")
				in.Severity = &v
			}
			if flags.Changed("duration-hours") {
				v, _ := flags.GetFloat64("duration-hours")
				in.DurationHours = &v
			}
			if flags.Changed("pregnant") {
				v, _ := flags.GetBool("pregnant")
				in.Pregnant = &v
			}
			sex, _ := flags.GetString("sex")
			in.SexAtBirth = decision.Sex(sex)

			v, err := decision.NewEngine(log.Nop()).Decide(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().Int("age", 0, "Age in years")
	cmd.Flags().Int("severity", 0, "Self-reported severity 1..10")
	cmd.Flags().Float64("duration-hours", 0, "Symptom duration in hours")
	cmd.Flags().String("sex", "", "Sex at birth (female, male, intersex, unknown)")
	cmd.Flags().Bool("pregnant", false, "Currently pregnant")
	return cmd
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired intake sessions once and print store stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := cfg.Config{}
			c.DatabaseURL, _ = cmd.Flags().GetString("database-url")
			c.SQLitePath, _ = cmd.Flags().GetString("sqlite-path")
			c.SessionTTL, _ = cmd.Flags().GetDuration("session-ttl")
			if c.StoreKind() == cfg.StoreMemory {
				return fmt.Errorf("one of --database-url or --sqlite-path is required")
			}

			ctx := cmd.Context()
			store, closeStore, err := sessionstore.Open(ctx, log.Nop(), &c)
			if err != nil {
				return err
			}
			defer closeStore()

			m := lifecycle.NewManager(store, log.Nop(), lifecycle.WithStatsFreshness(0))
			res, err := m.Sweep(ctx)
			if err != nil {
				return err
			}
			st, err := m.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				lifecycle.SweepResult
				Stats lifecycle.Stats `json:"stats"`
			}{res, st})
		},
	}
	cmd.Flags().String("database-url", os.Getenv("CAREPATH_DATABASE_URL"), "PostgreSQL connection URL")
	cmd.Flags().String("sqlite-path", os.Getenv("CAREPATH_SQLITE_PATH"), "SQLite session database")
	cmd.Flags().Duration("session-ttl", intake.DefaultTTL, "Session TTL the store was written with")
	return cmd
}
