package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ponyo877/bingo/server/domain"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [display_name]",
	Short: "Gets or sets the display name.",
	Long: `Shows the resolved client configuration.
With an argument, sets the display name used by the next create or join and
writes it to the config file when one is in use.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			fmt.Fprintf(out, "Display Name: %s\n", viper.GetString(playerNameKey))
			fmt.Fprintf(out, "Server:       %s\n", viper.GetString(serverURLKey))
			fmt.Fprintf(out, "gRPC Server:  %s\n", viper.GetString(grpcServerAddressKey))
			if f := viper.ConfigFileUsed(); f != "" {
				fmt.Fprintf(out, "Config File:  %s\n", f)
			}
			return nil
		}

		name, err := domain.NormalizeName(args[0])
		if err != nil {
			return err
		}
		viper.Set(playerNameKey, name)
		if viper.ConfigFileUsed() != "" {
			if err := viper.WriteConfig(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
		}
		fmt.Fprintf(out, "Display name set to: %s\n", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
