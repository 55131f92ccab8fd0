package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/icco/keytutor/internal/input"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI inputs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		names := input.Ports()
		if len(names) == 0 {
			fmt.Println("No MIDI inputs found.")
			return
		}
		for i, name := range names {
			fmt.Printf("%d: %s\n", i, name)
		}
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
