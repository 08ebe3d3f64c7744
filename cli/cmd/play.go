package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/gorilla/websocket"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Connects to the server and opens an interactive session.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := activeClient(); err == nil {
			return errors.New("already playing")
		}
		url := viper.GetString(serverURLKey)
		conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), url, nil)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", url, err)
		}
		c := newGameClient(conn, cmd.OutOrStdout(), viper.GetString(playerNameKey))
		setActiveClient(c)
		defer setActiveClient(nil)

		closing := make(chan struct{})
		go func() {
			err := c.listen()
			select {
			case <-closing:
			default:
				fmt.Fprintln(os.Stderr, "disconnected:", err)
			}
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "connected to %s as %s, type 'help' for commands and 'exit' to quit\n", url, c.name)
		prompt.New(
			execute,
			complete,
			prompt.OptionTitle("bingo"),
			prompt.OptionLivePrefix(livePrefix),
			prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
				return breakline && isExit(in)
			}),
		).Run()

		close(closing)
		c.close()
		return nil
	},
}

func execute(line string) {
	line = strings.TrimSpace(line)
	if line == "" || isExit(line) {
		return
	}
	args, err := shellwords.Parse(line)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
}

func complete(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	var suggests []prompt.Suggest
	for _, c := range rootCmd.Commands() {
		if c.Hidden || c.Name() == "play" || c.Name() == "completion" {
			continue
		}
		suggests = append(suggests, prompt.Suggest{Text: c.Name(), Description: c.Short})
	}
	suggests = append(suggests, prompt.Suggest{Text: "exit", Description: "Leaves the session."})
	return prompt.FilterHasPrefix(suggests, d.GetWordBeforeCursor(), true)
}

func livePrefix() (string, bool) {
	c, err := activeClient()
	if err != nil {
		return "", false
	}
	if roomID, _ := c.identity(); roomID != "" {
		return roomID + " ❯ ", true
	}
	return "❯ ", true
}

func isExit(line string) bool {
	line = strings.TrimSpace(line)
	return line == "exit" || line == "quit"
}

func init() {
	rootCmd.AddCommand(playCmd)
}
