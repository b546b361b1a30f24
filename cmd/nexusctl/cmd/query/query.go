// Package query implements the research query commands.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/internal/queryctx"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

// NewQueryCmd is the parent command for research queries.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Submit drug repurposing queries",
	}
	cmd.AddCommand(newSubmitCmd(), newExamplesCmd(), newEntityTypesCmd())
	return cmd
}

func newSubmitCmd() *cobra.Command {
	var (
		maxCandidates       int
		minConfidence       float64
		includeExperimental bool
	)

	cmd := &cobra.Command{
		Use:   "submit <query>",
		Short: "Run the repurposing workflow for a question",
		Example: `  nexusctl query submit "Can metformin be repurposed for Alzheimer's disease?"
  nexusctl query submit --max-candidates 5 --min-confidence 0.7 "drugs targeting TNF in psoriasis"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cmdutil.RequireSession(cmd); err != nil {
				return err
			}
			agents, err := cmdutil.Provider(cmd).Agents()
			if err != nil {
				return err
			}

			input := sdk.QueryInput{
				Query:               strings.Join(args, " "),
				MaxCandidates:       maxCandidates,
				IncludeExperimental: includeExperimental,
			}
			if cmd.Flags().Changed("min-confidence") {
				input.MinConfidence = &minConfidence
			}
			if err := input.Validate(); err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			result, err := agents.SubmitQuery(ctx, input)
			if err != nil {
				return fmt.Errorf("query failed: %s", cmdutil.Describe(err))
			}

			qc := &queryctx.QueryContext{
				Version:   queryctx.FileVersion,
				QueryID:   result.QueryID,
				Query:     input.Query,
				ServerURL: cmdutil.ServerURL(cmd),
				CreatedAt: time.Now().UTC(),
			}
			if err := queryctx.Write(cmdutil.ProfileDir(cmd), qc); err != nil {
				cmdutil.Warning(cmd, "could not remember query %s: %v", result.QueryID, err)
			}
			return printResult(cmd, result)
		},
	}

	cmd.Flags().IntVar(&maxCandidates, "max-candidates", 10, "Maximum number of candidates to return (1-50)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.5, "Minimum candidate confidence (0-1)")
	cmd.Flags().BoolVar(&includeExperimental, "include-experimental", false, "Include experimental compounds")
	return cmd
}

func printResult(cmd *cobra.Command, result *sdk.QueryResult) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Query ID: %s\n", result.QueryID)
	fmt.Fprintf(out, "Status:   %s\n", result.Status)
	if result.Safety != nil {
		fmt.Fprintf(out, "Safety:   passed=%t flags=%d critical=%d\n",
			result.Safety.Passed, result.Safety.FlagsCount, result.Safety.CriticalCount)
	}
	for _, e := range result.Errors {
		cmdutil.Warning(cmd, "%s", e)
	}

	if len(result.Candidates) == 0 {
		cmdutil.Info(cmd, "No candidates met the confidence threshold")
		return nil
	}

	cmdutil.Section(out, "Candidates")
	w := cmdutil.Table(cmd, "RANK\tDRUG\tDISEASE\tSCORE\tCONFIDENCE\tEVIDENCE")
	for _, c := range result.Candidates {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\t%d\n",
			c.Rank, c.DrugName, c.TargetDisease, c.OverallScore, c.Confidence, c.EvidenceCount)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out, "\nSee 'nexusctl report audit' for the full trail.")
	return nil
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show example queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cmdutil.RequireSession(cmd); err != nil {
				return err
			}
			agents, err := cmdutil.Provider(cmd).Agents()
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			examples, err := agents.ExampleQueries(ctx)
			if err != nil {
				return fmt.Errorf("failed to load examples: %s", cmdutil.Describe(err))
			}
			out := cmd.OutOrStdout()
			for _, ex := range examples {
				fmt.Fprintf(out, "- %s\n", ex.Query)
				if ex.Description != "" {
					fmt.Fprintf(out, "  %s\n", ex.Description)
				}
			}
			return nil
		},
	}
}

func newEntityTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entity-types",
		Short: "List supported biomedical entity types",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cmdutil.RequireSession(cmd); err != nil {
				return err
			}
			agents, err := cmdutil.Provider(cmd).Agents()
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			types, err := agents.EntityTypes(ctx)
			if err != nil {
				return fmt.Errorf("failed to load entity types: %s", cmdutil.Describe(err))
			}
			w := cmdutil.Table(cmd, "ID\tLABEL\tDESCRIPTION")
			for _, t := range types {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Label, cmdutil.Dash(t.Description))
			}
			return w.Flush()
		},
	}
}
