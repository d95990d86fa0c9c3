package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
)

func migrateCmd() *cobra.Command {
	var down bool
	var command = &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or roll back) the database schema",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()

			repo, err := storage.OpenSQLite(cfg.DBPath)
			if err != nil {
				log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
			}
			defer repo.Close()

			if down {
				if err := storage.MigrateDown(repo.DB()); err != nil {
					log.Fatal().Err(err).Msg("roll back migrations")
				}
				log.Info().Msg("schema rolled back")
				return
			}
			if err := storage.MigrateUp(repo.DB()); err != nil {
				log.Fatal().Err(err).Msg("apply migrations")
			}
			log.Info().Msg("schema up to date")
		},
	}

	command.Flags().BoolVar(&down, "down", false, "Roll the schema back instead of applying it")
	return command
}
