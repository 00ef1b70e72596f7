// Package main is the command-line front end of the Sailor game engine. Each
// invocation runs exactly one game command for the player named by --user.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
)

var (
	configPath string
	userID     int64

	game *app
)

var rootCmd = &cobra.Command{
	Use:   "sailor",
	Short: "Sailor guardian role-play game engine",
	Long: `Sailor runs one game command per invocation against the configured
storage backend. Pick a path with "register", then fight, explore, and team up.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), configPath)
		if err != nil {
			return err
		}
		game = a
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if game == nil {
			return nil
		}
		return game.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file (empty = defaults and SAILOR_ env)")
	rootCmd.PersistentFlags().Int64Var(&userID, "user", 0, "acting player's user id")

	rootCmd.AddCommand(
		archetypesCmd,
		registerCmd,
		profileCmd,
		inventoryCmd,
		shopCmd,
		buyCmd,
		useCmd,
		fightCmd,
		dailyCmd,
		exploreCmd,
		energyCmd,
		leaderboardCmd,
		inviteCmd,
		invitationsCmd,
		respondCmd,
		teamCmd,
		teamFightCmd,
		adminCmd,
	)
}

func main() {
	err := rootCmd.Execute()
	if err != nil && game != nil {
		_ = game.Close()
	}
	os.Exit(exitCode(err))
}

// exitCode prints err and maps it to a process status. Informational
// outcomes such as a repeated daily claim are not failures.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var gerr *gameerr.Error
	if errors.As(err, &gerr) && gerr.Code.Informational() {
		fmt.Fprintln(os.Stdout, gerr.Message)
		return 0
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func requireUser() (int64, error) {
	if userID == 0 {
		return 0, gameerr.New(gameerr.CodeInvalidArgument, "--user is required")
	}
	return userID, nil
}
