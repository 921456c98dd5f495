package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"thesis-track/backend/pkg/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "应用全部未执行的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if err := database.RunMigrations(sqlDB, logger); err != nil {
				fmt.Println(color.New(color.FgRed).Sprint("✗ 迁移失败"))
				return err
			}
			version, _, _ := database.MigrationVersion(sqlDB)
			fmt.Printf("%s 当前版本 %d\n", color.New(color.FgGreen).Sprint("✓ 迁移完成"), version)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "查看当前迁移版本",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			version, dirty, err := database.MigrationVersion(sqlDB)
			if err != nil {
				return err
			}
			state := color.New(color.FgGreen).Sprint("clean")
			if dirty {
				state = color.New(color.FgYellow).Sprint("dirty")
			}
			fmt.Printf("version: %d (%s)\n", version, state)
			return nil
		},
	})

	return cmd
}
