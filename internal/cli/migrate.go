package cli

import (
	"log"

	"github.com/spf13/cobra"

	"checkin-queue/internal/config"
	"checkin-queue/internal/helper"
	"checkin-queue/internal/store"
)

func newMigrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the check_ins schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if dsn != "" {
				cfg.DBDSN = dsn
			}

			db, err := config.OpenDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.Migrate(cmd.Context(), db, store.Dialect(cfg.DBDriver), helper.AccountNumber); err != nil {
				return err
			}
			log.Println("[migrate] done")
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "database DSN (overrides DB_DSN)")
	return cmd
}
