package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/qrraster/pkg/config"
	"github.com/matzehuels/qrraster/pkg/errors"
	"github.com/matzehuels/qrraster/pkg/pipeline"
	"github.com/matzehuels/qrraster/pkg/sink"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // output file path, "-" for stdout
	format  string // "png" or "raw"
	level   string // error correction level
	scale   int    // pixels per module
	margin  int    // quiet zone in modules
	noCache bool   // skip the artifact cache entirely
	refresh bool   // re-render and overwrite the cached artifact
}

// renderCommand creates the render command.
//
// Flags left unset fall back to the config file, then to built-in defaults.
func (c *CLI) renderCommand() *cobra.Command {
	defaults := config.Default()
	opts := renderOpts{
		format: defaults.Format,
		level:  defaults.Level,
		scale:  defaults.Scale,
		margin: defaults.Params().Margin,
	}

	cmd := &cobra.Command{
		Use:   "render CONTENT",
		Short: "Render content as a QR code image",
		Example: `  qrraster render "https://example.com" -o site.png
  qrraster render "hello" --scale 8 --margin 2 --level high
  qrraster render "hello" --format raw -o - | xxd | head`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts.applyConfig(cmd, cfg)
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default qr.<format>, - for stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: png, raw")
	cmd.Flags().StringVarP(&opts.level, "level", "l", opts.level, "error correction: low, medium, high, highest")
	cmd.Flags().IntVarP(&opts.scale, "scale", "s", opts.scale, "pixels per module")
	cmd.Flags().IntVarP(&opts.margin, "margin", "m", opts.margin, "quiet zone width in modules")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached artifacts")

	return cmd
}

// applyConfig copies config values into every flag the user did not set.
func (o *renderOpts) applyConfig(cmd *cobra.Command, cfg config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("format") {
		o.format = cfg.Format
	}
	if !flags.Changed("level") {
		o.level = cfg.Level
	}
	if !flags.Changed("scale") {
		o.scale = cfg.Scale
	}
	if !flags.Changed("margin") {
		o.margin = cfg.Params().Margin
	}
}

func (c *CLI) runRender(cmd *cobra.Command, content string, opts renderOpts) error {
	if opts.output == "" {
		opts.output = "qr." + opts.format
	}
	if err := errors.ValidateOutputPath(opts.output); err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	runner := c.newRunner(opts.noCache)
	popts := pipeline.Options{
		Content: content,
		Level:   opts.level,
		Scale:   opts.scale,
		Margin:  opts.margin,
		Format:  opts.format,
		Refresh: opts.refresh,
		Logger:  c.Logger,
	}

	// Without a cache there is nothing to keep, so rows go straight to
	// the destination instead of through a memory buffer.
	var result *pipeline.Result
	var err error
	if opts.noCache {
		result, err = runner.WriteFile(cmd.Context(), popts, c.Fs, opts.output, c.Stdout)
	} else {
		result, err = runner.Execute(cmd.Context(), popts)
		if err == nil {
			err = c.writeArtifact(opts.output, result.Artifact)
		}
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %s", opts.output))

	// Keep stdout clean when it carries the artifact.
	status := c.Stdout
	if opts.output == sink.Stdout {
		status = cmd.ErrOrStderr()
	}
	printSuccess(status, "QR code rendered")
	printSymbol(status, result.Symbol.Version, result.Symbol.Width, result.Geometry.RealWidth, result.CacheInfo.Hit)
	if opts.output != sink.Stdout {
		printFile(status, opts.output)
	}
	return nil
}

// writeArtifact copies data to a File sink, removing a partial file on failure.
func (c *CLI) writeArtifact(name string, data []byte) error {
	f, err := sink.Open(c.Fs, name, c.Stdout)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil && name != sink.Stdout {
		_ = c.Fs.Remove(name)
	}
	return err
}
