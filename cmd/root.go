package cmd

import (
	"github.com/bnema/wayshm/internal/config"
	"github.com/bnema/wayshm/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "wayshm",
		Short: "wayshm - minimal Wayland shared-memory window",
		Long: `wayshm opens a single xdg toplevel window, fills every frame with a
software-painted test pattern in a wl_shm buffer and lets you drag the window
with the left mouse button. Close it from the compositor to exit.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
		RunE:              runWindow,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/wayshm/wayshm.toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	addWindowFlags(rootCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		config.SetConfigPath(configPath)
	}
	if err := config.Init(); err != nil {
		return err
	}
	// --debug beats both LOG_LEVEL and logging.log_level
	if debug {
		return logger.SetLevel("debug")
	}
	return nil
}
