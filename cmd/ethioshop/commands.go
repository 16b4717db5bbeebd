package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethioshop/marketplace/internal/bootstrap"
	"github.com/ethioshop/marketplace/internal/migrations"
	"github.com/ethioshop/marketplace/internal/repository/sqlite"
	"github.com/ethioshop/marketplace/internal/seed"
	"github.com/ethioshop/marketplace/internal/support/hash"
)

func init() {
	// Migrate
	var migrateStatus bool
	var migrateRollback bool
	var migrateCmd = &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Database migration management",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.LoadConfig()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cfg.DB.SQLitePath)
			if err != nil {
				return err
			}
			fmt.Printf("Using DB path: %s\n", cfg.DB.SQLitePath)
			defer db.Close()

			if migrateStatus {
				return migrations.Status(db)
			}
			if migrateRollback {
				return migrations.Down(db)
			}

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}

			switch action {
			case "up":
				return migrations.Up(db)
			case "down":
				return migrations.Down(db)
			case "status":
				return migrations.Status(db)
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
		},
	}
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "Rollback the last migration")
	rootCmd.AddCommand(migrateCmd)

	// Seed
	var seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Load Ethiopian sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.LoadConfig()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cfg.DB.SQLitePath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.Up(db); err != nil {
				return err
			}

			hasher, err := hash.NewBcryptHasher(cfg.Auth.BcryptCost)
			if err != nil {
				return err
			}
			store := sqlite.NewStore(db)
			if err := seed.Run(context.Background(), store, hasher, nil); err != nil {
				return err
			}
			fmt.Println("Sample data loaded.")
			return nil
		},
	}
	rootCmd.AddCommand(seedCmd)

	// Backup
	var backupOutput string
	var backupCompress bool
	var backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Backup database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.LoadConfig()
			if err != nil {
				return err
			}
			target := backupOutput
			if target == "" {
				backupDir := "data/backups"
				if err := os.MkdirAll(backupDir, 0755); err != nil {
					return fmt.Errorf("create backup dir: %w", err)
				}
				ext := ".db"
				if backupCompress {
					ext += ".gz"
				}
				filename := fmt.Sprintf("ethioshop_%s%s", time.Now().Format("20060102_150405"), ext)
				target = filepath.Join(backupDir, filename)
			}

			db, err := bootstrap.OpenSQLite(cfg.DB.SQLitePath)
			if err != nil {
				return err
			}
			defer db.Close()

			tempFile := target
			if backupCompress {
				if strings.HasSuffix(target, ".gz") {
					tempFile = strings.TrimSuffix(target, ".gz")
				} else {
					tempFile = target + ".tmp"
				}
			}

			if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", tempFile)); err != nil {
				return fmt.Errorf("sqlite vacuum into: %w", err)
			}

			if backupCompress {
				if err := compressFile(tempFile, target); err != nil {
					os.Remove(tempFile)
					return err
				}
				os.Remove(tempFile)
			}

			fmt.Printf("Backup created at %s\n", target)
			return nil
		},
	}
	backupCmd.Flags().StringVar(&backupOutput, "output", "", "Output file path")
	backupCmd.Flags().BoolVar(&backupCompress, "compress", false, "Compress output with gzip")
	rootCmd.AddCommand(backupCmd)

	// Version
	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("EthioShop %s\n", Version)
			fmt.Printf("Commit: %s\n", Commit)
			fmt.Printf("Build Time: %s\n", BuildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	defer gw.Close()

	if _, err := io.Copy(gw, in); err != nil {
		return err
	}
	return nil
}
