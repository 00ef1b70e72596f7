package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/game/team"
	"github.com/cory-johannsen/sailor/internal/gameserver"
)

var (
	registerArchetype string
	registerHandle    string
	registerName      string
)

var archetypesCmd = &cobra.Command{
	Use:   "archetypes",
	Short: "List the paths a new player can choose",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		renderArchetypes(cmd.OutOrStdout(), game.svc.Catalog().Archetypes())
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register as a new player",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		p, err := game.svc.Register(cmd.Context(), gameserver.RegisterRequest{
			UserID:    id,
			Handle:    registerHandle,
			Name:      registerName,
			Archetype: registerArchetype,
		})
		if err != nil {
			return err
		}
		a, _ := game.svc.Catalog().Archetype(p.Archetype)
		fmt.Fprintf(cmd.OutOrStdout(), "You chose the path of %s! Welcome, %s.\n", a.Name, p.DisplayName())
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		prof, err := game.svc.Profile(cmd.Context(), id)
		if err != nil {
			return err
		}
		renderProfile(cmd.OutOrStdout(), prof)
		return nil
	},
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "List the items you carry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		lines, err := game.svc.Inventory(cmd.Context(), id)
		if err != nil {
			return err
		}
		renderInventory(cmd.OutOrStdout(), lines)
		return nil
	},
}

var shopCmd = &cobra.Command{
	Use:   "shop",
	Short: "List the items for sale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		renderShop(cmd.OutOrStdout(), game.svc.Shop())
		return nil
	},
}

var buyCmd = &cobra.Command{
	Use:   "buy <item-id>",
	Short: "Buy an item from the shop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		res, err := game.svc.Purchase(cmd.Context(), id, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "You bought %s. Remaining: %s\n", res.Item.Title, formatGold(res.Player.Gold))
		return nil
	},
}

var useCmd = &cobra.Command{
	Use:   "use <item-id>",
	Short: "Use an item from your inventory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		res, err := game.svc.UseItem(cmd.Context(), id, args[0])
		if err != nil {
			return err
		}
		renderUse(cmd.OutOrStdout(), res)
		return nil
	},
}

var fightCmd = &cobra.Command{
	Use:   "fight",
	Short: "Spend one energy to fight a monster",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		res, err := game.svc.Fight(cmd.Context(), id)
		if err != nil {
			return err
		}
		renderFight(cmd.OutOrStdout(), res, game.svc.Catalog())
		return nil
	},
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Claim today's reward",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		res, err := game.svc.ClaimDaily(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Daily reward: +%s, +%d energy, +%d XP\n", formatGold(res.Gold), res.Energy, res.XP)
		renderLevelUp(cmd.OutOrStdout(), res.Progress)
		return nil
	},
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Wander the city and see what happens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		res, err := game.svc.Explore(cmd.Context(), id)
		if err != nil {
			return err
		}
		renderExplore(cmd.OutOrStdout(), res)
		return nil
	},
}

var energyCmd = &cobra.Command{
	Use:   "energy",
	Short: "Show your energy and time to the next point",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		res, err := game.svc.Energy(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Energy: %d/%d\nNext point in: %d min %d sec\n",
			res.Energy, res.Max, res.Status.Minutes(), res.Status.Seconds())
		return nil
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the strongest players",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		top, err := game.svc.Leaderboard(cmd.Context())
		if err != nil {
			return err
		}
		renderLeaderboard(cmd.OutOrStdout(), top)
		return nil
	},
}

var inviteCmd = &cobra.Command{
	Use:   "invite <handle>",
	Short: "Invite a player to form a team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		res, err := game.svc.Invite(cmd.Context(), id, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Invitation %s sent to %s. It expires at %s.\n",
			res.Invitation.ID, res.Invitee.DisplayName(), res.Invitation.ExpiresAt.Format("2006-01-02 15:04 MST"))
		return nil
	},
}

var invitationsCmd = &cobra.Command{
	Use:   "invitations",
	Short: "List invitations waiting for your answer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		invs, err := game.svc.PendingInvitations(cmd.Context(), id)
		if err != nil {
			return err
		}
		renderInvitations(cmd.OutOrStdout(), invs)
		return nil
	},
}

var respondCmd = &cobra.Command{
	Use:   "respond <invitation-id> <accept|decline>",
	Short: "Answer a team invitation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		invID, err := uuid.Parse(args[0])
		if err != nil {
			return gameerr.Newf(gameerr.CodeInvalidArgument, "invalid invitation id %q", args[0])
		}
		decision, err := team.ParseDecision(args[1])
		if err != nil {
			return err
		}
		res, err := game.svc.RespondToInvitation(cmd.Context(), id, invID, decision)
		if err != nil {
			return err
		}
		if res.Team == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "You declined the invitation.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "You accepted the invitation. Team %d is formed!\n", res.Team.ID)
		return nil
	},
}

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Show your active teams",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		views, err := game.svc.ViewTeam(cmd.Context(), id)
		if err != nil {
			return err
		}
		renderTeams(cmd.OutOrStdout(), views)
		return nil
	},
}

var teamFightCmd = &cobra.Command{
	Use:   "teamfight",
	Short: "Fight a boss with your team",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := requireUser()
		if err != nil {
			return err
		}
		res, err := game.svc.TeamFight(cmd.Context(), id)
		if len(res.Exhausted) > 0 {
			renderExhausted(cmd.OutOrStdout(), res.Exhausted)
		}
		if err != nil {
			return err
		}
		renderTeamFight(cmd.OutOrStdout(), res, game.svc.Catalog())
		return nil
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands",
}

var deactivateTeamCmd = &cobra.Command{
	Use:   "deactivate-team <team-id>",
	Short: "Remove a team from team-fight lookups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		teamID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return gameerr.Newf(gameerr.CodeInvalidArgument, "invalid team id %q", args[0])
		}
		if err := game.svc.DeactivateTeam(cmd.Context(), teamID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Team %d deactivated.\n", teamID)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerArchetype, "archetype", "", "path to follow (see \"archetypes\")")
	registerCmd.Flags().StringVar(&registerHandle, "handle", "", "handle other players invite you by")
	registerCmd.Flags().StringVar(&registerName, "name", "", "display name")
	_ = registerCmd.MarkFlagRequired("archetype")

	adminCmd.AddCommand(deactivateTeamCmd)
}
