package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bnema/wayshm/internal/logger"
	"github.com/bnema/wayshm/internal/session"
	"github.com/bnema/wayshm/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var globalsCmd = &cobra.Command{
	Use:   "globals",
	Short: "List the globals the compositor advertises",
	Long: `Connect to the compositor, enumerate its registry without binding anything
and print every global. Interfaces the window binds are marked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("display")
		display, err := connectDisplay(addr)
		if err != nil {
			logger.Error("Failed to connect to display", "error", err)
			return err
		}
		defer display.Close()

		globals, err := session.Probe(display)
		if err != nil {
			return err
		}

		plain, _ := cmd.Flags().GetBool("plain")
		out := cmd.OutOrStdout()
		if f, ok := out.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
			plain = true
		}
		if plain {
			for _, g := range globals {
				mark := " "
				if g.Watched {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %d\t%s\tv%d\n", mark, g.Name, g.Interface, g.Version)
			}
			return nil
		}

		rows := make([][]string, 0, len(globals))
		bound := 0
		for _, g := range globals {
			rows = append(rows, []string{
				strconv.FormatUint(uint64(g.Name), 10),
				ui.FormatStatus(g.Watched, g.Interface),
				strconv.FormatUint(uint64(g.Version), 10),
			})
			if g.Watched {
				bound++
			}
		}
		name := addr
		if name == "" {
			name = os.Getenv("WAYLAND_DISPLAY")
		}
		fmt.Fprintln(out, ui.FormatAppHeader("GLOBALS", name))
		fmt.Fprintln(out, ui.FormatTable(
			[]string{"NAME", "INTERFACE", "VERSION"},
			rows,
			func(row int) bool { return globals[row].Watched },
		))
		fmt.Fprintln(out, ui.SubtleStyle.Render(fmt.Sprintf("%s globals, %d used by wayshm",
			humanize.Comma(int64(len(globals))), bound)))
		return nil
	},
}

func init() {
	globalsCmd.Flags().String("display", "", "Wayland display name or socket path (default is $WAYLAND_DISPLAY)")
	globalsCmd.Flags().Bool("plain", false, "print tab-separated output without styling")
	rootCmd.AddCommand(globalsCmd)
}
