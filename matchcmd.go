package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dstube1/Bot2.0/internal/config"
	"github.com/dstube1/Bot2.0/internal/vision"
)

var matchCmd = &cobra.Command{
	Use:   "match <frame.png>",
	Short: "Score the configured templates against a saved frame",
	Long:  "Loads a frame saved as PNG, runs the matcher against every configured state template, and prints the ranked confidences. Useful for tuning tolerances and thresholds without a live game window.",
	Args:  cobra.ExactArgs(1),
	RunE:  runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	img, err := vision.LoadImage(args[0])
	if err != nil {
		return err
	}
	frame := vision.Frame{Image: img, Region: img.Bounds(), CapturedAt: time.Now()}
	fmt.Printf("frame: %s (%dx%d)\n", args[0], img.Bounds().Dx(), img.Bounds().Dy())

	templates, err := cfg.Templates()
	if err != nil {
		return err
	}

	matcher := vision.NewMatcher(cfg.Match.Tolerance, cfg.Match.Floor)
	matches := matcher.Match(frame, templates)
	if len(matches) == 0 {
		fmt.Printf("no template reached the floor (%.2f)\n", cfg.Match.Floor)
		return nil
	}

	for i, m := range matches {
		fmt.Printf("%2d. %-24s confidence=%.3f at (%d, %d) size %dx%d\n",
			i+1, m.Label, m.Confidence, m.Location.X, m.Location.Y, m.Size.X, m.Size.Y)
	}
	return nil
}
