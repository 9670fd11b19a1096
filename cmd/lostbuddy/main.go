// Command lostbuddy runs the LostBuddy server and its maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nirojbhetuwal/lostbuddy/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// configFile is set by the --config flag.
	configFile string

	// cfg is loaded before every command except version.
	cfg *config.Config

	closeLog func()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lostbuddy",
	Short: "LostBuddy matches lost items with found ones",
	Long: `LostBuddy is a lost-and-found service. It scores reported items against
each other, notifies reporters of likely matches and manages ownership claims.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			closeLog()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (YAML); LOSTBUDDY_* variables override it")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lostbuddy %s\n", version)
	},
}

// loadConfig reads the configuration and sets up logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	level, err := config.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	closeLog, err = setupLogger(c.Log.Path, level)
	if err != nil {
		return err
	}

	cfg = c
	return nil
}
