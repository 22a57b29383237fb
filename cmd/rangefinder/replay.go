package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/internal/log"
	"github.com/teslashibe/go-rangefinder/pkg/app"
	"github.com/teslashibe/go-rangefinder/pkg/camera"
	"github.com/teslashibe/go-rangefinder/pkg/camera/cv"
	"github.com/teslashibe/go-rangefinder/pkg/distance"
)

var (
	replayOpts  Options
	replayInput string
	replayNth   int
	replayJSON  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run every frame of a video file through the pipeline and print announcements",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayNth < 1 {
			return fmt.Errorf("nth-frame must be at least 1, got %d", replayNth)
		}

		cfg := app.DefaultConfig()
		if err := replayOpts.apply(&cfg); err != nil {
			return err
		}
		cfg.Source = replayInput
		cfg.TTSMode = app.TTSNone
		cfg.Port = 0
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		logger := log.Component("replay")
		ctx := cmd.Context()

		capture, err := cv.Open(replayInput, logger)
		if err != nil {
			return err
		}
		defer capture.Close()

		p, err := app.NewPipeline(cfg, distance.StaticIntrinsics(cfg.Camera.Intrinsics()), logger)
		if err != nil {
			return err
		}
		defer p.Close()

		total := capture.FrameCount()
		if total <= 0 {
			total = -1
		}
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Replaying"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)

		enc := json.NewEncoder(os.Stdout)
		var read int
		for {
			frame, err := capture.Read(ctx)
			if err != nil {
				if errors.Is(err, camera.ErrSourceClosed) || ctx.Err() != nil {
					break
				}
				return err
			}
			read++
			_ = bar.Add(1)

			if (read-1)%replayNth != 0 {
				frame.Release()
				continue
			}

			result, err := p.Process(ctx, frame)
			if err != nil {
				logger.Warn("frame failed", "frame", read, "error", err)
				continue
			}

			if replayJSON {
				if err := enc.Encode(result); err != nil {
					return err
				}
				continue
			}
			for _, a := range result.Announcements {
				fmt.Printf("\nframe %d: %s (track %d, %s)\n", read, a.Text(), a.TrackID, a.Category)
			}
		}
		_ = bar.Finish()

		stats := p.Stats()
		fmt.Fprintf(os.Stderr, "\n%d frames read, %d processed, %d failed, %d announcements\n",
			read, stats.Completed, stats.Failed, stats.Announcements)
		return nil
	},
}

func init() {
	replayOpts.register(replayCmd.Flags())

	replayCmd.Flags().StringVarP(&replayInput, "input", "i", "", "Path to video")
	replayCmd.Flags().IntVarP(&replayNth, "nth-frame", "n", 1, "Process every nth frame")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Print each pass result as a JSON line")
	replayCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(replayCmd)
}
