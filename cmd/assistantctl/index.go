package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/commerce-assistant/internal/catalog"
	"github.com/capitalize-ai/commerce-assistant/internal/index"
)

var buildIndexCmd = &cobra.Command{
	Use:   "build-index [tenant...]",
	Short: "Build and persist the product index of tenants",
	Long: `Builds the search index of each named tenant and writes it to the artifact
directory. Without arguments every tenant directory of the file catalog is built.`,
	RunE: runBuildIndex,
}

func init() {
	rootCmd.AddCommand(buildIndexCmd)
}

func runBuildIndex(cmd *cobra.Command, args []string) error {
	if cfg.ArtifactDir == "" {
		return errors.New("artifact directory is not configured")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	a, err := newAssistant(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tenants := args
	if len(tenants) == 0 {
		fs, ok := a.source.(*catalog.FileSource)
		if !ok {
			return errors.New("name the tenants to build when reading from postgres")
		}
		if tenants, err = fs.Tenants(); err != nil {
			return fmt.Errorf("list tenants: %w", err)
		}
		if len(tenants) == 0 {
			warn("no tenants found in %s", fs.Dir())
			return nil
		}
	}

	var rows []string
	failed := 0
	for _, id := range tenants {
		start := time.Now()
		if err := a.registry.Reload(ctx, id); err != nil {
			failure("%s: %v", id, err)
			failed++
			continue
		}
		ix, err := index.Load(cfg.ArtifactDir, id)
		if err != nil {
			failure("%s: reading back artifact: %v", id, err)
			failed++
			continue
		}
		rows = append(rows, fmt.Sprintf("%s\t%d\t%d\t%s", id, ix.Len(), ix.VocabularySize(), time.Since(start).Round(time.Millisecond)))
	}

	if len(rows) > 0 {
		table("TENANT\tPRODUCTS\tVOCABULARY\tTOOK", rows)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tenants failed", failed, len(tenants))
	}
	success("built %d index artifacts in %s", len(rows), cfg.ArtifactDir)
	return nil
}
