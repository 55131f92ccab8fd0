package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/icco/keytutor/internal/score"
)

var inspectLimit int

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Print the steps keytutor would ask for",
	Long: `Print the steps of a MIDI file the way keytutor groups them: every note
that starts on the same tick is one step.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := score.Load(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d steps, %d ticks per quarter, %.1f BPM, channels %v\n",
			args[0], len(sc.Steps), sc.TicksPerQuarter, sc.BPM, sc.Channels())
		for i, step := range sc.Steps {
			if inspectLimit > 0 && i >= inspectLimit {
				fmt.Fprintf(out, "... %d more\n", len(sc.Steps)-i)
				break
			}
			notes := make([]string, len(step.Notes))
			for j, n := range step.Notes {
				notes[j] = fmt.Sprintf("%s/ch%d/v%d", noteName(n.Key), n.Channel+1, n.Velocity)
			}
			fmt.Fprintf(out, "%4d @%-7d %s\n", i+1, step.Tick, strings.Join(notes, " "))
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().IntVarP(&inspectLimit, "limit", "n", 0, "Only print the first n steps")
	rootCmd.AddCommand(inspectCmd)
}

func noteName(note uint8) string {
	names := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	return fmt.Sprintf("%s%d", names[note%12], int(note/12)-1)
}
