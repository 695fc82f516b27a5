package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/screenobserver/internal/config"
	"github.com/vango-dev/screenobserver/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a screenobserver.json with default settings",
		Long: `Create a screenobserver.json with default settings.

Examples:
  screenobserver init
  screenobserver init --dir ./site
  screenobserver init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := runInit(dir, force)
			if err != nil {
				return err
			}
			success("Created %s", path)
			info("Run 'screenobserver serve' to start the server")
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to create the config in")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")
	return cmd
}

// runInit writes a default config into dir and returns its path.
func runInit(dir string, force bool) (string, error) {
	if !force && config.Exists(dir) {
		return "", errors.New("E140").
			WithDetail(config.ConfigFileName + " already exists in " + dir).
			WithSuggestion("Use --force to overwrite it")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.New("E120").Wrap(err)
	}

	cfg := config.New()
	cfg.Name = filepath.Base(absDir(dir))

	path := filepath.Join(dir, config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return "", err
	}
	return path, nil
}

func absDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}
