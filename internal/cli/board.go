package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Gonzalez-Esteban/tareasd/internal/board"
	"github.com/Gonzalez-Esteban/tareasd/internal/identity"
	"github.com/Gonzalez-Esteban/tareasd/internal/schedule"
	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
)

func boardCmd() *cobra.Command {
	var userID string
	var command = &cobra.Command{
		Use:   "board",
		Short: "Open the interactive task board in the terminal",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			logger := newLogger()

			store := openStore(cfg)
			defer store.Close()

			if userID == "" {
				userID = cfg.LocalUser
			}
			resolver := identity.NewResolver(store)
			user, err := resolver.Resolve(cmd.Context(), userID)
			if err != nil {
				log.Fatal().Err(err).Str("user", userID).Msg("resolve local user (set TAREASD_USER or --user)")
			}

			feed := storage.NewFeed()
			repo := storage.NewNotifyingRepository(store, feed)

			engine := schedule.StatusEngine{DueSoonWindow: cfg.DueSoonWindow}
			lifecycle := schedule.NewLifecycle(repo, engine, logger)
			reeval := schedule.NewReevaluator(repo, feed, engine, cfg.ReevalInterval, logger)
			reeval.Start()
			defer reeval.Stop()

			program := tea.NewProgram(board.NewModel(user, lifecycle, reeval))
			if _, err := program.Run(); err != nil {
				log.Fatal().Err(err).Msg("board failed")
			}
		},
	}

	command.Flags().StringVarP(&userID, "user", "u", "", "Acting user id (default from env)")
	return command
}
