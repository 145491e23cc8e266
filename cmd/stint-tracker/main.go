package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pitwall/stint-tracker/internal/agent"
	"github.com/pitwall/stint-tracker/internal/config"
	"github.com/pitwall/stint-tracker/internal/events"
	"github.com/pitwall/stint-tracker/internal/monitor"
	"github.com/pitwall/stint-tracker/internal/stint"
	"github.com/pitwall/stint-tracker/internal/store"
	"github.com/pitwall/stint-tracker/internal/telemetry"
	"github.com/pitwall/stint-tracker/internal/tire"
)

// Process exit codes, part of the contract with the supervising UI.
const (
	exitOK               = 0
	exitRuntime          = 1
	exitBadArgs          = 2
	exitTelemetryLost    = 3
	exitStoreUnreachable = 4
)

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

var (
	configPath string

	sessionID string
	drivers   []string
	practice  bool
	agentName string
	dryRun    bool

	listSessionID string
)

var rootCmd = &cobra.Command{
	Use:           "stint-tracker",
	Short:         "Track pit stops and tire changes from live game telemetry",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor a session and record stints as pit stops complete",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTracker()
	},
}

var stintsCmd = &cobra.Command{
	Use:   "stints",
	Short: "List recorded stints for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listStints()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	runCmd.Flags().StringVar(&sessionID, "session-id", "", "session identifier (required)")
	runCmd.Flags().StringSliceVar(&drivers, "drivers", nil, "driver names; the first is the active driver (required)")
	runCmd.Flags().BoolVar(&practice, "practice", false, "practice session: wait for a garage return before tracking")
	runCmd.Flags().StringVar(&agentName, "agent-name", "", "agent name for heartbeats (default: derived from pid)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run without game telemetry; heartbeats and cleanup still occur")

	stintsCmd.Flags().StringVar(&listSessionID, "session-id", "", "session identifier (required)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stintsCmd)
}

func runTracker() error {
	if !stint.ValidSessionID(sessionID) {
		return &exitError{exitBadArgs, errors.Errorf("invalid --session-id %q", sessionID)}
	}
	var known []string
	for _, d := range drivers {
		if strings.TrimSpace(d) != "" {
			known = append(known, strings.TrimSpace(d))
		}
	}
	if len(known) == 0 {
		return &exitError{exitBadArgs, errors.New("--drivers requires at least one name")}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return &exitError{exitRuntime, errors.Wrap(err, "load config")}
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return &exitError{exitStoreUnreachable, errors.Wrap(err, "open store")}
	}
	defer db.Close()

	reporter := events.NewWriter(os.Stdout, os.Stderr)

	hb := agent.New(db, agent.DeriveName(agentName), cfg.Agent.HeartbeatInterval, cfg.Agent.StaleAfter)
	if err := hb.Register(); err != nil {
		// Heartbeats are advisory; tracking continues without them.
		log.Printf("agent registration failed: %v", err)
	}
	defer hb.Unregister()

	opts := monitor.Options{
		SessionID:          sessionID,
		Drivers:            known,
		Practice:           practice,
		PollInterval:       cfg.Monitor.PollInterval,
		PollTimeout:        cfg.Telemetry.PollTimeout,
		TelemetryGrace:     cfg.Monitor.TelemetryGrace,
		WearResetThreshold: cfg.Tires.WearResetThreshold,
	}

	if practice {
		latest, err := db.LatestStint(sessionID)
		if err != nil {
			return &exitError{exitRuntime, errors.Wrap(err, "load practice baseline")}
		}
		if latest != nil {
			opts.PracticeBaseline = latest.CompletedAt
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var source telemetry.Source
	if dryRun {
		log.Println("dry-run mode: game telemetry disabled")
		source = telemetry.NewScriptedSource()
		opts.TelemetryGrace = 0 // an empty source is the point, not a loss
	} else {
		bridge := telemetry.NewBridgeSource(cfg.Telemetry.BridgeURL, cfg.Telemetry.Freshness)
		bridge.Start(ctx)
		defer bridge.Close()
		source = bridge
	}

	go hb.Run(ctx)

	if err := monitor.New(source, db, reporter, opts).Run(ctx); err != nil {
		if errors.Is(err, monitor.ErrTelemetryLost) {
			return &exitError{exitTelemetryLost, err}
		}
		return &exitError{exitRuntime, err}
	}
	return nil
}

func listStints() error {
	if !stint.ValidSessionID(listSessionID) {
		return &exitError{exitBadArgs, errors.Errorf("invalid --session-id %q", listSessionID)}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return &exitError{exitRuntime, errors.Wrap(err, "load config")}
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return &exitError{exitStoreUnreachable, errors.Wrap(err, "open store")}
	}
	defer db.Close()

	stints, err := db.ListStints(listSessionID)
	if err != nil {
		return &exitError{exitRuntime, err}
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Driver", "Pit Time", "Completed", "Tires Changed"})
	for i, s := range stints {
		t.AppendRow(table.Row{
			len(stints) - i,
			s.Driver,
			s.PitTime,
			s.CompletedAt.Local().Format("15:04:05"),
			changedCorners(s.Changed),
		})
	}
	t.Render()
	return nil
}

func changedCorners(changed tire.ChangeResult) string {
	var parts []string
	for _, corner := range tire.Corners {
		if changed[corner] {
			parts = append(parts, string(corner))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func main() {
	log.SetOutput(os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			fmt.Fprintf(os.Stderr, "__error__:stint_tracker:%v\n", ee.err)
			os.Exit(ee.code)
		}
		// cobra's own errors are argument problems.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadArgs)
	}
}
