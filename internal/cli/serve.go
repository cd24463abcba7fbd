package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dpshade/pocket-forms/internal/api"
	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/mcp"
)

func (c *CLI) exportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [template...]",
		Short: "Export templates as YAML",
		Long: `Export templates as YAML for sharing or backup. With no arguments every
template is exported. Segment ids and last responses are not included.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var indices []int
			for _, ref := range args {
				index, _, err := c.resolveTemplate(ref)
				if err != nil {
					return err
				}
				indices = append(indices, index)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if err := c.service.Export(w, indices...); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func (c *CLI) importCommand() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import templates from a YAML export",
		Long: `Import templates from a file written by export ("-" reads stdin). Imported
templates are appended unless --replace is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()
				r = f
			}

			n, err := c.service.Import(r, replace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d templates\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "replace all templates instead of appending")
	return cmd
}

func (c *CLI) serveCommand() *cobra.Command {
	var (
		host  string
		port  int
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the JSON API for listing templates, generating prompts and
submitting them. Documentation is served at /api/docs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("host") {
				host = c.cfg.Server.Host
			}
			if !flags.Changed("port") {
				port = c.cfg.Server.Port
			}
			if !flags.Changed("watch") {
				watch = c.cfg.Server.Watch
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				if err := c.service.Watch(ctx); err != nil {
					return err
				}
				defer c.service.StopWatching()
			}

			ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
			if err != nil {
				return fmt.Errorf("failed to listen on %s:%d: %w", host, port, err)
			}
			server := api.NewAPIServer(c.service, host, port)
			errC := make(chan error, 1)
			go func() {
				errC <- server.Serve(ln)
			}()

			fmt.Fprintf(cmd.ErrOrStderr(), "Serving on http://%s:%d (docs at /api/docs)\n", host, port)

			select {
			case err := <-errC:
				return err
			case <-ctx.Done():
			}

			logging.Info("shutting down API server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				logging.Warn("API server did not stop cleanly", zap.Error(err))
				return err
			}
			return <-errC
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "interface to listen on")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload templates when the store changes on disk")
	return cmd
}

func (c *CLI) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve templates as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the
list_templates, list_fields, generate_prompt and submit_prompt tools.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcp.NewServer(c.service).Start()
		},
	}
}
