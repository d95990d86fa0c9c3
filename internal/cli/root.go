package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Gonzalez-Esteban/tareasd/internal/config"
	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
)

func Run() {
	var command = &cobra.Command{
		Use:   "tareasd",
		Short: "Tablero de tareas programadas y pedidos",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	command.AddCommand(serveCmd())
	command.AddCommand(boardCmd())
	command.AddCommand(migrateCmd())

	if err := command.Execute(); err != nil {
		log.Fatal().Msgf("failed to execute command, err: %v", err.Error())
	}
}

func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	applyLogLevel(cfg.LogLevel)
	return cfg
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

func openStore(cfg config.Config) *storage.SQLiteRepository {
	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := storage.MigrateUp(repo.DB()); err != nil {
		repo.Close()
		log.Fatal().Err(err).Msg("apply migrations")
	}
	return repo
}

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
