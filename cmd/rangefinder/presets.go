package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/pkg/camera"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List camera presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tFPS\tROTATION\tFOCAL\tSENSOR")
		for _, name := range camera.PresetNames() {
			c := camera.GetPreset(name)
			fmt.Fprintf(w, "%s\t%dx%d\t%d\t%d\t%.2fmm\t%.2fmm\n",
				name, c.Width, c.Height, c.Framerate, c.Rotation(), c.FocalLength, c.SensorHeight)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
