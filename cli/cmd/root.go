package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	serverURLKey         = "server_url"
	grpcServerAddressKey = "grpc_server_address"
	playerNameKey        = "player_name"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cli",
	Short: "Console client for the bingo server",
	Long: `Console client for the bingo server.

Run without arguments to open an interactive session, then create or join a room
and play with create, join, call, mark, start and reset.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs a one-shot command when arguments are given, otherwise an interactive session.
func Execute() {
	if len(os.Args) <= 1 {
		rootCmd.SetArgs([]string{playCmd.Name()})
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.bingo.yaml)")
	rootCmd.PersistentFlags().String("server", "ws://localhost:8080/ws", "WebSocket endpoint of the bingo server")
	rootCmd.PersistentFlags().String("grpc-server", "localhost:50051", "Address of the gRPC health endpoint")
	rootCmd.PersistentFlags().String("name", "", "Display name used when creating or joining rooms")

	viper.BindPFlag(serverURLKey, rootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag(grpcServerAddressKey, rootCmd.PersistentFlags().Lookup("grpc-server"))
	viper.BindPFlag(playerNameKey, rootCmd.PersistentFlags().Lookup("name"))
	viper.SetDefault(serverURLKey, "ws://localhost:8080/ws")
	viper.SetDefault(grpcServerAddressKey, "localhost:50051")
	viper.SetDefault(playerNameKey, defaultName())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bingo")
	}

	viper.SetEnvPrefix("BINGO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}

func defaultName() string {
	if name := strings.TrimSpace(os.Getenv("USER")); name != "" {
		return name
	}
	return "player"
}
