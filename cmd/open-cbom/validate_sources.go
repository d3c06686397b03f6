package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/open-sspm/open-cbom/internal/config"
	"github.com/open-sspm/open-cbom/internal/datasource"
	"github.com/spf13/cobra"
)

var validateSourcesFile string

var validateSourcesCmd = &cobra.Command{
	Use:   "validate-sources",
	Short: "Validate the data source catalog without fetching anything.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOptionalDB()
		if err != nil {
			return err
		}
		path := cfg.DataSourcesFile
		if validateSourcesFile != "" {
			path = validateSourcesFile
		}
		return validateSources(cfg, path)
	},
}

func init() {
	validateSourcesCmd.Flags().StringVar(&validateSourcesFile, "file", "", "Catalog to validate (defaults to DATASOURCES_FILE)")
}

func validateSources(cfg config.Config, path string) error {
	cat, err := datasource.LoadCatalog(path)
	if err != nil {
		return err
	}
	if len(cat.Sources) == 0 {
		return errors.New("data source catalog lists no sources")
	}

	tokens, err := githubTokens(cfg)
	if err != nil {
		return err
	}
	var missingToken []string
	for _, src := range cat.Sources {
		slog.Info("data source ok", "source", src.ID, "type", src.Type.Label())
		if src.Type == datasource.ConnectionGitHub && !tokens.Configured() {
			missingToken = append(missingToken, src.ID)
		}
	}
	if len(missingToken) > 0 {
		return fmt.Errorf("github sources %s need GITHUB_TOKEN or VAULT_GITHUB_TOKEN_PATH", strings.Join(missingToken, ", "))
	}
	slog.Info("data source catalog is valid", "path", path, "sources", len(cat.Sources))
	return nil
}
