package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrylevesque/nutritrack/internal/crypto"
	"github.com/harrylevesque/nutritrack/internal/files"
)

func seedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in food catalogue into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.store.Seed(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("Food catalogue already present; nothing seeded.")
				return nil
			}
			fmt.Printf("Seeded %d foods.\n", n)
			return nil
		},
	}
}

func backupCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write an encrypted archive per user",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer e.close()
			if dir == "" {
				dir = e.cfg.Backup.Dir
			}
			key, err := crypto.ReadMasterKey(e.cfg.Auth.MasterKeyFile)
			if err != nil {
				return err
			}

			start := time.Now()
			n, err := files.Backup(cmd.Context(), e.store, dir, key, e.cfg.Backup.Workers)
			if err != nil {
				return err
			}
			e.log.Info("backup complete",
				zap.String("dir", dir),
				zap.Int("users", n),
				zap.Duration("duration", time.Since(start)))
			fmt.Printf("Backed up %d users to %s\n", n, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory (default backup.dir from config)")
	return cmd
}

func restoreCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Import every encrypted archive in a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer e.close()
			if dir == "" {
				dir = e.cfg.Backup.Dir
			}
			key, err := crypto.ReadMasterKey(e.cfg.Auth.MasterKeyFile)
			if err != nil {
				return err
			}

			n, err := files.Restore(cmd.Context(), e.store, dir, key)
			if err != nil {
				return err
			}
			e.log.Info("restore complete", zap.String("dir", dir), zap.Int("users", n))
			fmt.Printf("Restored %d users from %s\n", n, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory (default backup.dir from config)")
	return cmd
}
