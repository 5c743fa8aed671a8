package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Print the projected next stage move for a lead",
	Long: `Evaluate the automation rules against one lead and print the projected
transition. Nothing is moved; rules are never executed.`,
	RunE: runProject,
}

var projectLeadID string

func init() {
	projectCmd.Flags().StringVar(&projectLeadID, "lead", "", "Lead ID")
	_ = projectCmd.MarkFlagRequired("lead")
}

func runProject(cmd *cobra.Command, args []string) error {
	if projectLeadID == "" {
		return errors.New("--lead is required")
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	// A nil actor runs as the system and sees every lead.
	projection, err := a.automation.ProjectLead(cmd.Context(), nil, projectLeadID)
	if err != nil {
		return fmt.Errorf("projection failed: %w", err)
	}
	if projection == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "no applicable automation rule")
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(projection)
}
