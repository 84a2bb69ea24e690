package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bnema/wayshm/internal/config"
	"github.com/bnema/wayshm/internal/logger"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wayshm configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Config file:\t%s\n\n", config.GetConfigPath())

		fmt.Fprintln(w, "[window]")
		fmt.Fprintf(w, "  width\t%d\n", cfg.Window.Width)
		fmt.Fprintf(w, "  height\t%d\n", cfg.Window.Height)
		fmt.Fprintf(w, "  decorations\t%s\n", cfg.Window.Decorations)

		fmt.Fprintln(w, "\n[shm]")
		fmt.Fprintf(w, "  backend\t%s\n", cfg.Shm.Backend)
		fmt.Fprintf(w, "  dir\t%s\n", cfg.Shm.Dir)

		fmt.Fprintln(w, "\n[paint]")
		fmt.Fprintf(w, "  mode\t%s\n", cfg.Paint.Mode)
		fmt.Fprintf(w, "  palette\t%s\n", strings.Join(cfg.Paint.Palette, " "))
		fmt.Fprintf(w, "  color\t%s\n", cfg.Paint.Color)
		if cfg.Paint.Image != "" {
			fmt.Fprintf(w, "  image\t%s\n", cfg.Paint.Image)
		}

		fmt.Fprintln(w, "\n[logging]")
		level := cfg.Logging.LogLevel
		if level == "" {
			level = "(LOG_LEVEL)"
		}
		fmt.Fprintf(w, "  log_level\t%s\n", level)

		return w.Flush()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check if config already exists
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite existing configuration")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
