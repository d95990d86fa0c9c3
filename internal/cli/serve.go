package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Gonzalez-Esteban/tareasd/internal/api"
	"github.com/Gonzalez-Esteban/tareasd/internal/identity"
	"github.com/Gonzalez-Esteban/tareasd/internal/schedule"
	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
)

func serveCmd() *cobra.Command {
	var port int
	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the periodic task reevaluator",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			logger := newLogger()

			store := openStore(cfg)
			defer store.Close()

			feed := storage.NewFeed()
			repo := storage.NewNotifyingRepository(store, feed)

			engine := schedule.StatusEngine{DueSoonWindow: cfg.DueSoonWindow}
			lifecycle := schedule.NewLifecycle(repo, engine, logger)
			reeval := schedule.NewReevaluator(repo, feed, engine, cfg.ReevalInterval, logger)
			reeval.Start()
			defer reeval.Stop()

			if port == 0 {
				port = cfg.HTTPPort
			}
			server := api.NewServer(repo, lifecycle, reeval, engine, identity.NewResolver(repo), logger)
			log.Info().Int("port", port).Str("db", cfg.DBPath).Msg("starting server")
			if err := server.Run(port); err != nil {
				log.Fatal().Err(err).Msg("server stopped")
			}
		},
	}

	command.Flags().IntVarP(&port, "port", "p", 0, "Port to run the server on (default from env)")
	return command
}
