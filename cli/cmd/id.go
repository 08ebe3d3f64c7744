package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// idCmd represents the id command
var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Prints the current room and player id.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := activeClient()
		if err != nil {
			return err
		}
		roomID, playerID := c.identity()
		if roomID == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "not in a room")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Room: %s\nPlayer: %s (%s)\n", roomID, c.name, playerID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(idCmd)
}
