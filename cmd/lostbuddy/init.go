package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"github.com/nirojbhetuwal/lostbuddy/internal/auth"
	"github.com/nirojbhetuwal/lostbuddy/internal/db"
	"github.com/nirojbhetuwal/lostbuddy/internal/model"
	"github.com/nirojbhetuwal/lostbuddy/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and the admin account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfg.Database.Path); err == nil {
			return fmt.Errorf("database file %s already exists", cfg.Database.Path)
		}

		password, err := initDatabase(cfg.Database.Path, cfg.Admin.Username, cfg.Admin.Email)
		if err != nil {
			return err
		}
		printInitResult(cmd, cfg.Database.Path, cfg.Admin.Username, password)
		return nil
	},
}

// initDatabase creates a new database with the schema and an admin account,
// and returns the generated admin password. The file is removed on failure.
func initDatabase(path, adminUsername, adminEmail string) (password string, err error) {
	database, err := db.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		err = errors.Join(err, database.Close())
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := db.Migrate(database); err != nil {
		return "", fmt.Errorf("migrating database: %w", err)
	}

	password, err = generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	if _, err := store.CreateUser(context.Background(), database, adminUsername, adminEmail, "", hash, model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

func printInitResult(cmd *cobra.Command, dbPath, username, password string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database created: %s\n", dbPath)
	fmt.Fprintln(out, "Schema initialized.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Admin account created:")
	fmt.Fprintf(out, "  Username: %s\n", username)
	fmt.Fprintf(out, "  Password: %s\n", password)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Save this password, it cannot be recovered.")
	fmt.Fprintln(out, "It can be changed after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
