package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/internal/config"
	"github.com/teslashibe/go-rangefinder/pkg/app"
)

var (
	runOpts   Options
	runSource string
	runPort   int
	runStatic string
	runTTS    string
	runModel  string
	runFormat string
	runVoice  string
	runPlayer string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Estimate distances from a live camera, video file or websocket feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.DefaultConfig()
		if err := runOpts.apply(&cfg); err != nil {
			return err
		}
		cfg.Source = runSource
		cfg.Port = runPort
		cfg.StaticDir = runStatic
		cfg.TTSMode = runTTS
		cfg.TTSModel = runModel
		cfg.TTSFormat = runFormat
		cfg.Voice = runVoice
		cfg.Player = runPlayer

		a, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		if err := a.Init(cmd.Context()); err != nil {
			a.Shutdown()
			return fmt.Errorf("initialization failed: %w", err)
		}
		defer a.Shutdown()

		return a.Run(cmd.Context())
	},
}

func init() {
	runOpts.register(runCmd.Flags())

	runCmd.Flags().StringVarP(&runSource, "source", "s", config.String(config.EnvSource, config.DefaultSource), "Camera index, video file or ws:// frame feed")
	runCmd.Flags().IntVar(&runPort, "port", config.Int(config.EnvPort, config.DefaultPort), "Dashboard port, 0 disables it")
	runCmd.Flags().StringVar(&runStatic, "static", "", "Directory served at / by the dashboard")
	runCmd.Flags().StringVar(&runTTS, "tts", app.TTSAuto, "Speech: auto, openai, espeak or none")
	runCmd.Flags().StringVar(&runModel, "tts-model", "", "OpenAI speech model, e.g. tts-1-hd (default tts-1)")
	runCmd.Flags().StringVar(&runFormat, "tts-format", "", "OpenAI audio format: mp3, wav, pcm or opus (default mp3)")
	runCmd.Flags().StringVar(&runVoice, "voice", config.String(config.EnvVoice, ""), "TTS voice")
	runCmd.Flags().StringVar(&runPlayer, "player", "ffplay", "Audio player reading stdin, empty discards audio")

	rootCmd.AddCommand(runCmd)
}
