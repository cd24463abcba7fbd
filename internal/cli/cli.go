// Package cli is the pocket-forms command tree. Running without a command
// opens the TUI; every other command works headlessly on the same store.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dpshade/pocket-forms/internal/config"
	apperrors "github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/parser"
	"github.com/dpshade/pocket-forms/internal/service"
	"github.com/dpshade/pocket-forms/internal/storage"
	"github.com/dpshade/pocket-forms/internal/ui"
	"github.com/dpshade/pocket-forms/internal/validation"
	"github.com/dpshade/pocket-forms/internal/version"
)

// CLI holds what every command needs: configuration and the template service
type CLI struct {
	configPath string
	verbose    bool

	cfg     *config.Config
	service *service.Service
	// owned is set when the service was opened here and must be closed
	owned bool

	errorHandler *apperrors.CLIErrorHandler
}

// NewCLI creates a CLI that opens the store on first use
func NewCLI() *CLI {
	return &CLI{errorHandler: apperrors.NewCLIErrorHandler(false)}
}

// NewCLIWithService creates a CLI around an existing service
func NewCLIWithService(cfg *config.Config, svc *service.Service) *CLI {
	return &CLI{
		cfg:          cfg,
		service:      svc,
		errorHandler: apperrors.NewCLIErrorHandler(false),
	}
}

// Execute runs the command tree against os.Args and returns the exit code
func Execute() int {
	c := NewCLI()
	defer c.close()
	root := c.RootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, c.errorHandler.FormatError(err))
		return 1
	}
	return 0
}

// RootCommand builds the full command tree
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pocket-forms",
		Short: "Build prompt templates with fill-in form fields",
		Long: `pocket-forms turns prompt text containing [Label: option one, option two]
tokens into a form. Pick an option per field to generate the prompt, copy it,
or submit it to an HTTP endpoint inside a JSON document.

Running without a command opens the interactive editor.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.errorHandler.Verbose = c.verbose
			switch cmd.Name() {
			case "version", "init":
				return nil
			}
			return c.setup(cmd.Name() == "pocket-forms")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
		RunE: c.runTUI,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default <data dir>/config.toml)")
	root.PersistentFlags().BoolVar(&c.verbose, "verbose", false, "show error details")

	root.AddCommand(
		c.listCommand(),
		c.showCommand(),
		c.fieldsCommand(),
		c.generateCommand(),
		c.submitCommand(),
		c.templateCommand(),
		c.segmentCommand(),
		c.configCommand(),
		c.exportCommand(),
		c.importCommand(),
		c.serveCommand(),
		c.mcpCommand(),
		c.initCommand(),
		versionCommand(),
	)
	return root
}

// setup loads configuration, starts logging and opens the store. The TUI
// logs to a file so log lines do not draw over the screen.
func (c *CLI) setup(tui bool) error {
	if c.cfg == nil {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return err
		}
		c.cfg = cfg
	}

	logOpts := logging.Options{Level: c.cfg.Log.Level, File: c.cfg.Log.File}
	if tui && logOpts.File == "" {
		logOpts.File = filepath.Join(c.cfg.LogDir(), "pocket-forms.log")
	}
	if err := logging.InitializeWithOptions(logOpts); err != nil {
		return err
	}

	if c.service != nil {
		return nil
	}

	kv, err := storage.Open(c.cfg.StorageOptions())
	if err != nil {
		return err
	}
	svc, err := service.NewService(storage.NewTemplateStore(kv), service.Options{
		SubmitTimeout: c.cfg.Submit.Timeout,
	})
	if err != nil {
		kv.Close()
		return err
	}
	c.service = svc
	c.owned = true

	logging.Debug("store opened",
		zap.String("dir", c.cfg.Storage.Dir),
		zap.String("backend", c.cfg.Storage.Backend),
	)
	return nil
}

func (c *CLI) close() {
	if c.owned && c.service != nil {
		if err := c.service.Close(); err != nil {
			logging.Warn("failed to close store", zap.Error(err))
		}
		c.service = nil
		c.owned = false
	}
	logging.Sync()
}

func (c *CLI) runTUI(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := c.service.Watch(ctx); err != nil {
		logging.Warn("store watching disabled", zap.Error(err))
	}
	defer c.service.StopWatching()

	return ui.Run(c.service, ui.Options{
		GlamourStyle: c.cfg.UI.GlamourStyle,
		WordWrap:     c.cfg.UI.WordWrap,
		LogDir:       c.cfg.LogDir(),
	})
}

func (c *CLI) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a sample config file",
		Long: `Write a commented config.toml to the --config path, or to the data
directory when --config is not given. An existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				dir, err := storage.ResolveDir(os.Getenv(config.DirEnvVar))
				if err != nil {
					return err
				}
				path = filepath.Join(dir, config.FileName)
			}
			if err := config.InitConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pocket-forms "+version.Full())
		},
	}
}

// resolveTemplate maps an index or (fuzzy) name to a template index
func (c *CLI) resolveTemplate(ref string) (int, models.Template, error) {
	index, err := c.service.FindTemplate(ref)
	if err != nil {
		return 0, models.Template{}, err
	}
	tmpl, err := c.service.GetTemplate(index)
	return index, tmpl, err
}

// resolveSegment finds a segment by id, 0-based position or name
func resolveSegment(tmpl models.Template, ref string) (models.Segment, error) {
	for _, seg := range tmpl.Segments {
		if seg.ID == ref {
			return seg, nil
		}
	}
	if pos, err := strconv.Atoi(ref); err == nil && pos >= 0 && pos < len(tmpl.Segments) {
		return tmpl.Segments[pos], nil
	}
	for _, seg := range tmpl.Segments {
		if strings.EqualFold(seg.Name, ref) {
			return seg, nil
		}
	}
	return models.Segment{}, apperrors.NotFoundError(fmt.Sprintf("Segment '%s' in template '%s'", ref, tmpl.Name))
}

// parseSet turns repeated key=value flags into form values. Keys are
// normalized the way field labels are, so "--set Tone=calm" fills "tone".
func parseSet(pairs []string) (map[string]string, error) {
	assigned, err := validation.ParseAssignments(pairs)
	if err != nil {
		return nil, apperrors.ValidationError("invalid --set: " + err.Error())
	}
	values := make(map[string]string, len(assigned))
	for k, v := range assigned {
		values[parser.NormalizeName(k)] = v
	}
	return values, nil
}

// readText reads a value given inline, from a file, or from stdin when the
// file is "-"
func readText(cmd *cobra.Command, inline, path string) (string, error) {
	switch path {
	case "":
		return inline, nil
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	}
}
