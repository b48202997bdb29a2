package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/jimbo/internal/config"
)

const configHeader = `# jimbo configuration.
#
# quotes may point at a JSON or YAML file shaped like
#   copilotAccepted: {positive: [...], sarcastic: [...]}
#   clickQuotes: [...]
# Environment overrides: JIMBO_QUOTES, JIMBO_ADDR, JIMBO_LOG_LEVEL, JIMBO_SETTLE.
`

// generateConfig renders cfg as a commented YAML file.
func generateConfig(cfg config.Config) (string, error) {
	data, err := cfg.Marshal()
	if err != nil {
		return "", fmt.Errorf("rendering config: %w", err)
	}
	return configHeader + "\n" + string(data), nil
}

// initCmd implements `jimbo init`, which writes a default config file.
func (a *app) initCmd() *cobra.Command {
	var dryRun, force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default " + config.DefaultPath,
		Long: `Write the default configuration to path, which defaults to ./` + config.DefaultPath + `.
An existing file is left alone unless --force is given.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := generateConfig(config.Default())
			if err != nil {
				return err
			}
			if dryRun {
				_, _ = fmt.Fprint(a.stdout, content)
				return nil
			}

			path := config.DefaultPath
			if len(args) > 0 {
				path = args[0]
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("checking %s: %w", path, err)
				}
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(a.stderr, "wrote default config to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the config without writing it")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
