package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/qrraster/pkg/matrix"
)

// matrixCommand prints the module matrix of a symbol without rendering it.
func (c *CLI) matrixCommand() *cobra.Command {
	var level string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "matrix CONTENT",
		Short: "Print the module matrix of a QR symbol",
		Long:  `Print the module matrix as text, one row per line, "#" for dark and "." for light modules. The quiet zone is not included.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("level") {
				level = cfg.Level
			}
			lvl, err := matrix.ParseLevel(level)
			if err != nil {
				return err
			}

			sym, err := matrix.Encode(args[0], lvl)
			if err != nil {
				return err
			}
			c.Logger.Debug("encoded content", "version", sym.Version, "modules", sym.Width)

			if !quiet {
				printKeyValue(c.Stdout, "version", strconv.Itoa(sym.Version))
				printKeyValue(c.Stdout, "level", string(sym.Level))
				printKeyValue(c.Stdout, "modules", fmt.Sprintf("%d x %d (%d dark)", sym.Width, sym.Width, sym.DarkCount()))
			}
			_, err = fmt.Fprint(c.Stdout, sym.String())
			return err
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", string(matrix.DefaultLevel), "error correction: low, medium, high, highest")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the matrix")

	return cmd
}
