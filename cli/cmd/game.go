package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ponyo877/bingo/server/domain"
)

var createCmd = &cobra.Command{
	Use:   "create [display_name]",
	Short: "Creates a new room and joins it.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := activeClient()
		if err != nil {
			return err
		}
		board, _ := c.currentBoard()
		return c.send(domain.NewCreateRoomRequest(displayName(args), board))
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <room_id> [display_name]",
	Short: "Joins an existing room, creating it when it does not exist.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := activeClient()
		if err != nil {
			return err
		}
		board, _ := c.currentBoard()
		return c.send(domain.NewJoinRoomRequest(args[0], displayName(args[1:]), board))
	},
}

var boardCmd = &cobra.Command{
	Use:       "board [shuffle]",
	Short:     "Shows your board, or deals a new one before the game starts.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"shuffle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := activeClient()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			board, marks := c.currentBoard()
			fmt.Fprint(cmd.OutOrStdout(), formatBoard(board, marks))
			return nil
		}
		if args[0] != "shuffle" {
			return fmt.Errorf("unknown board action %q", args[0])
		}
		board := c.shuffle()
		fmt.Fprint(cmd.OutOrStdout(), formatBoard(board, domain.NewMarks()))
		roomID, playerID := c.identity()
		if roomID == "" {
			return nil
		}
		return c.send(domain.NewSetBoardRequest(roomID, playerID, board))
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the game (host only).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := activeClient()
		if err != nil {
			return err
		}
		roomID, playerID, err := c.requireRoom()
		if err != nil {
			return err
		}
		return c.send(domain.NewStartGameRequest(roomID, playerID))
	},
}

var callCmd = &cobra.Command{
	Use:   "call <number>",
	Short: "Calls a number for the whole room.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := activeClient()
		if err != nil {
			return err
		}
		number, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		roomID, _, err := c.requireRoom()
		if err != nil {
			return err
		}
		return c.send(domain.NewCallNumberRequest(roomID, number))
	},
}

var markCmd = &cobra.Command{
	Use:   "mark <number>",
	Short: "Marks a number on your board.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := activeClient()
		if err != nil {
			return err
		}
		number, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		req, err := c.markRequest(number)
		if err != nil {
			return err
		}
		return c.send(req)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clears marks and calls for a new round (host only).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := activeClient()
		if err != nil {
			return err
		}
		roomID, _, err := c.requireRoom()
		if err != nil {
			return err
		}
		return c.send(domain.NewResetGameRequest(roomID))
	},
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Leaves the current room.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := activeClient()
		if err != nil {
			return err
		}
		req, err := c.leave()
		if err != nil {
			return err
		}
		return c.send(req)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Asks the server for its status over the game connection.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := activeClient()
		if err != nil {
			return err
		}
		return c.send(domain.NewCheckServerRequest())
	},
}

func displayName(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return viper.GetString(playerNameKey)
}

func parseNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > domain.MaxNumber {
		return 0, fmt.Errorf("number must be between 1 and %d: %q", domain.MaxNumber, arg)
	}
	return n, nil
}

func init() {
	rootCmd.AddCommand(createCmd, joinCmd, boardCmd, startCmd, callCmd, markCmd, resetCmd, leaveCmd, checkCmd)
}
