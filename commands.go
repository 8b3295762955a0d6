package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TFMV/relmap/config"
	"github.com/TFMV/relmap/engine"
	"github.com/TFMV/relmap/ingest"
	"github.com/TFMV/relmap/models"
	"github.com/TFMV/relmap/render"
	"github.com/TFMV/relmap/server"
	"github.com/TFMV/relmap/viewer"
)

var (
	withTeams bool
	withRepos bool
	density   float64

	snapshotFile string

	renderPerson string
	renderFile   string
	renderFormat string
	renderOutput string
	renderWidth  float64
	renderHeight float64
	maxTicks     int

	servePort int
)

var viewCmd = &cobra.Command{
	Use:   "view [person-id]",
	Short: "Open the interactive canvas",
	Long: `Open a window with the relation map of a person.

Type a person ID and press Enter to load it. F2 toggles teams, F3 toggles
repositories. Drag nodes with the left mouse button.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := openDirectory()
		if err != nil {
			return err
		}
		e, err := engine.New(cfg, logger)
		if err != nil {
			return err
		}
		e.OnDragEnd(func(snapshot []models.NodeSnapshot) {
			logger.Info("nodes moved", "count", len(snapshot))
			if snapshotFile == "" {
				return
			}
			if err := writeJSON(snapshotFile, snapshot); err != nil {
				logger.Warn("saving snapshot", "file", snapshotFile, "error", err)
			}
		})

		opts := viewer.Options{
			Teams:   withTeams,
			Repos:   withRepos,
			Density: density,
		}
		if density <= 0 {
			opts.Density = cfg.Canvas.Density
		}
		if len(args) == 1 {
			opts.Person = args[0]
		}
		return viewer.Run(cmd.Context(), e, dir, opts, logger)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Lay out a graph headlessly and write it as PNG, SVG or JSON",
	Long: `Resolve a person (--person) or load a graph file (--file), run the
simulation until it comes to rest and write the result.

Graph files may be JSON or YAML documents, CSV edge lists or arrow logs.
The format defaults to the extension of --output, then to PNG.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (renderPerson == "") == (renderFile == "") {
			return errors.New("exactly one of --person or --file is required")
		}

		format := renderFormat
		if format == "" {
			format = strings.TrimPrefix(filepath.Ext(renderOutput), ".")
		}
		if format == "" {
			format = "png"
		}
		renderer, err := render.GetRenderer(format)
		if err != nil {
			return err
		}

		layoutCfg := *cfg
		if renderWidth > 0 {
			layoutCfg.Canvas.Width = renderWidth
		}
		if renderHeight > 0 {
			layoutCfg.Canvas.Height = renderHeight
		}
		if density > 0 {
			layoutCfg.Canvas.Density = density
		}
		e, err := engine.New(&layoutCfg, logger)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if renderFile != "" {
			g, err := ingest.ReadFile(renderFile)
			if err != nil {
				return err
			}
			if _, err := e.Reconcile(e.Begin(), g); err != nil {
				return err
			}
		} else {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			if _, err := e.Refresh(ctx, dir, e.Request(renderPerson, withTeams, withRepos)); err != nil {
				return err
			}
		}

		ticks, err := e.Settle(ctx, maxTicks)
		if err != nil {
			return fmt.Errorf("layout interrupted after %d ticks: %w", ticks, err)
		}

		w, h, d := e.Size()
		opts := render.NewDefaultOptions(format)
		opts.Width, opts.Height, opts.Density = w, h, d
		opts.Theme = layoutCfg.Theme
		output, err := renderer.Render(e.Store(), opts)
		if err != nil {
			return fmt.Errorf("rendering failed: %w", err)
		}

		if renderOutput == "" || renderOutput == "-" {
			_, err := os.Stdout.Write(output)
			return err
		}
		if err := os.WriteFile(renderOutput, output, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		logger.Info("rendered", "output", renderOutput, "renderer", renderer.Name(), "nodes", e.Store().Len(), "ticks", ticks)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered relation maps over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := openDirectory()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		return server.New(cfg, dir, logger).Start(cmd.Context())
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <person-id>",
	Short: "Print the relation graph of a person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := openDirectory()
		if err != nil {
			return err
		}
		req := models.Request{
			EntityID: args[0],
			Teams:    withTeams,
			Repos:    withRepos,
		}
		g, err := dir.ResolveGraph(cmd.Context(), req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		focal, err := g.FindNodeByID(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s)\n", focal.Label, focal.ID)
		for _, id := range g.Neighbors(focal.ID) {
			n, err := g.FindNodeByID(id)
			if err != nil {
				continue
			}
			fmt.Fprintf(out, "  %-8s %-10s %s\n", n.Shape, n.ID, n.Label)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.Path()
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{viewCmd, renderCmd, resolveCmd} {
		c.Flags().BoolVar(&withTeams, "teams", false, "Include the person's teams")
		c.Flags().BoolVar(&withRepos, "repos", false, "Include the person's repositories")
	}
	for _, c := range []*cobra.Command{viewCmd, renderCmd} {
		c.Flags().Float64Var(&density, "density", 0, "Physical pixels per logical pixel (default from config)")
	}

	viewCmd.Flags().StringVar(&snapshotFile, "snapshot", "", "Write node positions as JSON to this file after every drag")

	renderCmd.Flags().StringVar(&renderPerson, "person", "", "Person ID to resolve")
	renderCmd.Flags().StringVar(&renderFile, "file", "", "Graph file to lay out (json, yaml, csv, log)")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "", "Output format: png, svg, json")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file (default stdout)")
	renderCmd.Flags().Float64Var(&renderWidth, "width", 0, "Canvas width (default from config)")
	renderCmd.Flags().Float64Var(&renderHeight, "height", 0, "Canvas height (default from config)")
	renderCmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "Upper bound on simulation ticks (0 for the default)")

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")

	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(viewCmd, renderCmd, serveCmd, resolveCmd, configCmd)
}

// writeJSON writes v to path as indented JSON
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
