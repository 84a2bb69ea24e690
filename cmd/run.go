package cmd

import (
	"fmt"

	"github.com/bnema/wayshm/internal/config"
	"github.com/bnema/wayshm/internal/logger"
	"github.com/bnema/wayshm/internal/session"
	"github.com/bnema/wayshm/internal/wayland"
	"github.com/bnema/wayshm/internal/wl"
	"github.com/spf13/cobra"
)

// connectDisplay is swapped out by tests.
var connectDisplay = func(addr string) (wl.Display, error) {
	display, err := wayland.Connect(addr)
	if err != nil {
		return nil, err
	}
	return display, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the window (default command)",
	Long: `Connect to the compositor, map a toplevel window and dispatch events
until the compositor asks the window to close.`,
	RunE: runWindow,
}

func init() {
	addWindowFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().String("display", "", "Wayland display name or socket path (default is $WAYLAND_DISPLAY)")
	cmd.Flags().Int32("width", 0, "initial window width")
	cmd.Flags().Int32("height", 0, "initial window height")
	cmd.Flags().String("decorations", "", "decoration policy: default, server or client")
	cmd.Flags().String("paint", "", "paint mode: stripes, solid or image")
	cmd.Flags().String("image", "", "picture to paint in image mode")
}

// windowConfig returns the loaded config with command-line overrides applied.
func windowConfig(cmd *cobra.Command) (*config.Config, error) {
	c := *config.Get()
	flags := cmd.Flags()
	if flags.Changed("width") {
		c.Window.Width, _ = flags.GetInt32("width")
	}
	if flags.Changed("height") {
		c.Window.Height, _ = flags.GetInt32("height")
	}
	if flags.Changed("decorations") {
		c.Window.Decorations, _ = flags.GetString("decorations")
	}
	if flags.Changed("image") {
		c.Paint.Image, _ = flags.GetString("image")
		c.Paint.Mode = config.PaintImage
	}
	if flags.Changed("paint") {
		c.Paint.Mode, _ = flags.GetString("paint")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func runWindow(cmd *cobra.Command, args []string) error {
	cfg, err := windowConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.SessionOptions()
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("display")
	display, err := connectDisplay(addr)
	if err != nil {
		logger.Error("Failed to connect to display", "error", err)
		return err
	}

	s := session.New(display, opts)
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("Teardown was incomplete", "error", err)
		}
	}()

	if err := s.Setup(); err != nil {
		return err
	}
	if err := s.Run(); err != nil {
		return err
	}

	width, height := s.Size()
	logger.Info("Window closed", "frames", s.Frames(), "size", fmt.Sprintf("%dx%d", width, height))
	return nil
}
