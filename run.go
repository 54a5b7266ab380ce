package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dstube1/Bot2.0/internal/capture"
	"github.com/dstube1/Bot2.0/internal/config"
	"github.com/dstube1/Bot2.0/internal/dispatch"
	"github.com/dstube1/Bot2.0/internal/engine"
	"github.com/dstube1/Bot2.0/internal/ledger"
	"github.com/dstube1/Bot2.0/internal/logger"
	"github.com/dstube1/Bot2.0/internal/tracker"
	"github.com/dstube1/Bot2.0/internal/vision"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the capture/match/act loop",
	RunE:  runLoop,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "match and track but never issue input")
	rootCmd.AddCommand(runCmd)
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging, verbose)

	templates, err := cfg.Templates()
	if err != nil {
		return err
	}
	log.Info().Int("templates", len(templates)).Str("dir", cfg.TemplatesDir).Msg("templates loaded")

	res, err := ledger.New(cfg.Ledger.Path, cfg.Ledger.FlushInterval.Duration)
	if err != nil {
		return err
	}
	log.Info().Str("run_id", res.RunID).Str("path", cfg.Ledger.Path).Msg("ledger opened")

	var input dispatch.Input
	if !dryRun {
		input = dispatch.NewRobotInput(cfg.Capture.Display)
	}
	d := dispatch.New(cfg.Policy(), input, dryRun, log)

	sup := engine.New(
		engine.Config{
			Interval:            cfg.Loop.Interval.Duration,
			StagnationWindow:    cfg.Loop.StagnationWindow.Duration,
			Recovery:            cfg.Recovery.Action(),
			MaxCaptureFailures:  cfg.Loop.MaxCaptureFailures,
			MaxDispatchFailures: cfg.Loop.MaxDispatchFailures,
		},
		capture.NewScreenCapturer(cfg.Capture.Display, config.Rect(cfg.Capture.Region), cfg.Capture.MinInterval.Duration),
		vision.NewMatcher(cfg.Match.Tolerance, cfg.Match.Floor),
		templates,
		tracker.New(cfg.Track.Accept, cfg.Track.Tentative, cfg.Track.LowConfidenceBound),
		d,
		res,
		log,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := sup.Run(ctx)

	stopReason := "stop requested"
	if runErr != nil {
		stopReason = runErr.Error()
	}
	if cerr := res.Close(stopReason); cerr != nil {
		log.Error().Err(cerr).Msg("ledger close failed")
	}
	for resource, total := range res.Totals() {
		log.Info().Str("resource", resource).Int64("total", total).Msg("run yield")
	}

	return runErr
}
