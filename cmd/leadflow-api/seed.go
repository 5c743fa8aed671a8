package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadflow/backend/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default pipeline",
	Long: `Create pipeline stages, automation rules and entities from a YAML file.
Without --file the built-in pipeline is used. Stages and entities that already
exist are left untouched.`,
	RunE: runSeed,
}

var seedFile string

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Seed file (defaults to the built-in pipeline)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	var p *seed.Pipeline
	if seedFile != "" {
		p, err = seed.LoadFile(seedFile)
	} else {
		p, err = seed.Default()
	}
	if err != nil {
		return err
	}

	seeder := &seed.Seeder{
		Stages:   a.stageRepo,
		Rules:    a.ruleRepo,
		Entities: a.entityRepo,
		Audit:    a.audit,
	}
	result, err := seeder.Apply(cmd.Context(), p)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
