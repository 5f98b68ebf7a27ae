package main

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/feedrover/internal/config"
)

//go:embed templates/feedrover.yaml templates/env
var templates embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// envFileName is written next to the config file with --env.
const envFileName = ".env"

// errFileExists is returned when init would overwrite a file without --force.
var errFileExists = errors.New("file already exists (use -f to overwrite)")

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new feedrover configuration file",
		Long: `Init writes a commented .feedrover configuration file, and with --env a
.env file listing the environment variables feedrover reads.

Examples:
  # Create .feedrover in current directory
  feedrover init

  # Also create .env for proxy credentials
  feedrover init --env

  # Create config file at a specific path, replacing an old one
  feedrover init -o ~/.config/feedrover/config.yaml -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing files")
	cmd.Flags().Bool("env", false,
		"Also write a .env template next to the configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	withEnv, err := cmd.Flags().GetBool("env")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := writeTemplate("templates/feedrover.yaml", outputPath, force); err != nil {
		return err
	}
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)

	if withEnv {
		envPath := filepath.Join(filepath.Dir(outputPath), envFileName)
		if err := writeTemplate("templates/env", envPath, force); err != nil {
			return err
		}
		fmt.Fprintf(out, "Created environment file:   %s\n", envPath)
	}

	printInitHints(out, withEnv)
	return nil
}

// writeTemplate copies an embedded template to path with mode 0600.
func writeTemplate(name, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, errFileExists)
		}
	}

	content, err := templates.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read template %s: %w", name, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func printInitHints(out io.Writer, withEnv bool) {
	fmt.Fprintln(out, "\nNext steps:")
	if withEnv {
		fmt.Fprintf(out, "  1. Put your proxies in %s (never in the config file)\n", envFileName)
	} else {
		fmt.Fprintf(out, "  1. Export %s with your proxies\n", config.EnvProxies)
	}
	fmt.Fprintln(out, "  2. feedrover proxy seed --from-env")
	fmt.Fprintln(out, "  3. feedrover crawl <keyword or URL>")
}
