// Package report implements commands that inspect query reports.
package report

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/internal/queryctx"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

// graphRadius is the layout radius used when printing node positions.
const graphRadius = 100

// NewReportCmd is the parent command for report inspection.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect the reports of a completed query",
		Long: `Inspect the reports of a completed query. The query id defaults to the last
query submitted with this profile against the same server.`,
	}
	cmd.AddCommand(newAuditCmd(), newGraphCmd(), newCitationsCmd(), newPDFCmd())
	return cmd
}

// reportsClient returns the reports client once a login is verified.
func reportsClient(cmd *cobra.Command) (*sdk.ReportsClient, error) {
	if _, err := cmdutil.RequireSession(cmd); err != nil {
		return nil, err
	}
	return cmdutil.Provider(cmd).Reports()
}

// queryID resolves the optional query id argument against the profile's
// last submitted query.
func queryID(cmd *cobra.Command, args []string) (string, error) {
	var explicit string
	if len(args) > 0 {
		explicit = args[0]
	}
	stored, err := queryctx.Read(cmdutil.ProfileDir(cmd))
	if err != nil && explicit == "" {
		return "", err
	}
	return queryctx.Resolve(explicit, stored, cmdutil.ServerURL(cmd))
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit [query-id]",
		Short: "Show the audit trail of a query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := queryID(cmd, args)
			if err != nil {
				return err
			}
			reports, err := reportsClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			trail, err := reports.AuditTrail(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load audit trail: %s", cmdutil.Describe(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workflow:   %s\n", trail.WorkflowID)
			fmt.Fprintf(out, "Run at:     %s\n", trail.Timestamp)
			fmt.Fprintf(out, "Role:       %s\n", trail.UserRole)
			fmt.Fprintf(out, "Safety:     %s\n", trail.SafetyDecision)
			if trail.SafetyReason != "" {
				fmt.Fprintf(out, "Reason:     %s\n", trail.SafetyReason)
			}
			fmt.Fprintf(out, "Confidence: %.2f\n", trail.ConfidenceSummary)
			fmt.Fprintf(out, "Version:    %s\n", trail.SystemVersion)

			cmdutil.Section(out, "Steps")
			w := cmdutil.Table(cmd, "STEP\tSTATUS\tDURATION")
			for _, step := range trail.StepsExecuted {
				duration := "-"
				if step.DurationMs != nil {
					duration = fmt.Sprintf("%dms", *step.DurationMs)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", step.StepName, step.Status, duration)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(trail.ModelIdentifiers) > 0 {
				cmdutil.Section(out, "Models")
				agents := make([]string, 0, len(trail.ModelIdentifiers))
				for agent := range trail.ModelIdentifiers {
					agents = append(agents, agent)
				}
				sort.Strings(agents)
				for _, agent := range agents {
					fmt.Fprintf(out, "%s: %s\n", agent, trail.ModelIdentifiers[agent])
				}
			}
			return nil
		},
	}
}

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [query-id]",
		Short: "Show the reasoning graph of a query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := queryID(cmd, args)
			if err != nil {
				return err
			}
			reports, err := reportsClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			graph, err := reports.ReasoningGraph(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load reasoning graph: %s", cmdutil.Describe(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s -> %s (%d paths, max confidence %.2f)\n",
				graph.Drug, graph.Disease, graph.PathCount, graph.MaxConfidence)

			positions := sdk.CircularLayout(graph, graphRadius)
			cmdutil.Section(out, "Nodes")
			w := cmdutil.Table(cmd, "ID\tLABEL\tTYPE\tX\tY")
			for _, n := range graph.Nodes {
				p := positions[n.ID]
				fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.1f\n", n.ID, n.Label, n.NodeType, p.X, p.Y)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			cmdutil.Section(out, "Edges")
			w = cmdutil.Table(cmd, "SOURCE\tRELATION\tTARGET\tCONFIDENCE\tPMID")
			for _, e := range graph.Edges {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", e.Source, e.Relation, e.Target, e.Confidence, cmdutil.Dash(e.PMID))
			}
			return w.Flush()
		},
	}
}

func newCitationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "citations [query-id]",
		Short: "List the literature behind a query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := queryID(cmd, args)
			if err != nil {
				return err
			}
			reports, err := reportsClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			citations, err := reports.Citations(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load citations: %s", cmdutil.Describe(err))
			}
			if len(citations.Citations) == 0 {
				cmdutil.Info(cmd, "No citations for query %s", citations.QueryID)
				return nil
			}

			w := cmdutil.Table(cmd, "PMID\tYEAR\tROLE\tTITLE\tAUTHORS")
			for _, c := range citations.Citations {
				year := "-"
				if c.Year != nil {
					year = fmt.Sprint(*c.Year)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					c.PMID, year, c.EvidenceRole, c.Title, cmdutil.Dash(strings.Join(c.Authors, ", ")))
			}
			return w.Flush()
		},
	}
}

func newPDFCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pdf [query-id]",
		Short: "Download the PDF report of a query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := queryID(cmd, args)
			if err != nil {
				return err
			}
			reports, err := reportsClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			data, err := reports.PDF(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to download report: %s", cmdutil.Describe(err))
			}

			path := output
			if path == "" {
				path = fmt.Sprintf("biomind_report_%s.pdf", id)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			cmdutil.Success(cmd, "Saved report to %s (%d bytes)", path, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default biomind_report_<query-id>.pdf)")
	return cmd
}
