package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voxline/voxline/pkg/audio/portaudio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture and playback devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := portaudio.Devices()
		if err != nil {
			return fmt.Errorf("failed to enumerate devices: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "IDX\tNAME\tIN\tOUT\tRATE\tDEFAULT")
		for _, d := range devices {
			def := ""
			if d.IsDefaultInput {
				def += "input "
			}
			if d.IsDefaultOutput {
				def += "output"
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.0f\t%s\n",
				d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels,
				d.DefaultSampleRate, def)
		}
		return w.Flush()
	},
}
