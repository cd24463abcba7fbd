// Migrate-store copies the template list between storage backends, or loads
// it from a raw JSON dump of the browser app's saved templates.
//
// Usage:
//
//	migrate-store --from file --to sqlite
//	migrate-store --import templates.json --to file
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dpshade/pocket-forms/internal/config"
	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/storage"
	"github.com/dpshade/pocket-forms/internal/version"
)

var (
	configPath string
	dir        string
	from       string
	to         string
	importPath string
	force      bool
	dryRun     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "migrate-store",
	Short: "Copy templates between storage backends",
	Long: `Copy the template list from one storage backend to another, or import
a raw JSON dump of the browser app's saved templates.

The destination is left alone when it already holds templates, unless
--force is given.`,
	Example: `  # Move to the SQLite backend
  migrate-store --from file --to sqlite

  # Load templates exported from the browser's local storage
  migrate-store --import promptTemplates.json --to file`,
	Version:      version.Version,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runMigrate,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file (default <data dir>/config.toml)")
	rootCmd.Flags().StringVar(&dir, "dir", "", "data directory (default from config)")
	rootCmd.Flags().StringVar(&from, "from", storage.BackendFile, "source backend (file, sqlite)")
	rootCmd.Flags().StringVar(&to, "to", storage.BackendSQLite, "destination backend (file, sqlite)")
	rootCmd.Flags().StringVar(&importPath, "import", "", "read templates from a raw JSON dump instead of --from")
	rootCmd.Flags().BoolVar(&force, "force", false, "overwrite templates already in the destination")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be copied without writing")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logging.InitializeWithOptions(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		return err
	}
	defer logging.Sync()

	if dir == "" {
		dir = cfg.Storage.Dir
	}
	if importPath == "" && strings.EqualFold(from, to) {
		return fmt.Errorf("--from and --to are both %q", from)
	}

	templates, source, err := loadSource()
	if err != nil {
		return err
	}

	fmt.Printf("Found %d templates in %s:\n", len(templates), source)
	for i, t := range templates {
		fmt.Printf("  %d. %s (%d segments)\n", i, t.Name, len(t.Segments))
	}
	if dryRun {
		return nil
	}

	dst, err := storage.Open(storage.Options{Dir: dir, Backend: to})
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", to, err)
	}
	defer dst.Close()

	if !force {
		existing, ok, err := dst.Get(storage.TemplatesKey)
		if err != nil {
			return fmt.Errorf("failed to read %s store: %w", to, err)
		}
		if ok && hasTemplates(existing) {
			return fmt.Errorf("the %s store already holds templates; pass --force to overwrite", to)
		}
	}

	if err := storage.NewTemplateStore(dst).Save(templates); err != nil {
		return err
	}

	logging.Info("templates migrated",
		zap.String("source", source),
		zap.String("backend", to),
		zap.Int("count", len(templates)))
	fmt.Printf("Wrote %d templates to the %s store in %s\n", len(templates), to, dir)
	return nil
}

// loadSource reads templates from the import file or the --from backend
func loadSource() ([]models.Template, string, error) {
	if importPath != "" {
		data, err := os.ReadFile(importPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", importPath, err)
		}
		templates, err := decodeDump(data)
		if err != nil {
			return nil, "", fmt.Errorf("%s is not a template list: %w", importPath, err)
		}
		return templates, importPath, nil
	}

	src, err := storage.Open(storage.Options{Dir: dir, Backend: from})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s store: %w", from, err)
	}
	defer src.Close()

	if _, ok, err := src.Get(storage.TemplatesKey); err != nil {
		return nil, "", err
	} else if !ok {
		return nil, "", fmt.Errorf("the %s store in %s holds no templates", from, dir)
	}

	templates, err := storage.NewTemplateStore(src).Load()
	if err != nil {
		return nil, "", err
	}
	return templates, "the " + from + " store", nil
}

// decodeDump accepts the template array itself, the string the browser
// keeps it in (the same array JSON-encoded once more), or a whole local
// storage object holding that string under the templates key.
func decodeDump(data []byte) ([]models.Template, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var all map[string]json.RawMessage
		if err := json.Unmarshal(data, &all); err != nil {
			return nil, err
		}
		value, ok := all[storage.TemplatesKey]
		if !ok {
			return nil, fmt.Errorf("no %q key", storage.TemplatesKey)
		}
		data = bytes.TrimSpace(value)
	}
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, err
		}
		data = []byte(inner)
	}
	templates, err := storage.DecodeTemplates(data)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("no templates found")
	}
	return templates, nil
}

func hasTemplates(data []byte) bool {
	templates, err := storage.DecodeTemplates(data)
	return err == nil && len(templates) > 0
}
