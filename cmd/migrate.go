package cmd

import (
	"database/sql"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-holestpay/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the HolestPay database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := mustLoadConfig()
		db := mustOpenDatabase(cfg)
		defer db.Close()

		if err := migrations.Up(db); err != nil {
			logrus.WithError(err).Fatal("Migration failed")
		}
		logMigrationVersion(db)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations, one step by default",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				logrus.WithField("steps", args[0]).Fatal("steps must be a number")
			}
			steps = n
		}

		cfg := mustLoadConfig()
		db := mustOpenDatabase(cfg)
		defer db.Close()

		if err := migrations.Down(db, steps); err != nil {
			logrus.WithError(err).Fatal("Rollback failed")
		}
		logMigrationVersion(db)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func logMigrationVersion(db *sql.DB) {
	version, dirty, err := migrations.Version(db)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read schema version")
		return
	}
	logrus.WithField("version", version).WithField("dirty", dirty).Info("Schema version")
}
