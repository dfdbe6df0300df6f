package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"boolnet/internal/errors"
	"boolnet/pkg/boolnet"
)

func newEnumerateCmd(c *cli) *cobra.Command {
	var (
		sessionID     string
		limit         int
		workers       int
		maxOptional   int
		reference     string
		optionalAware bool
		printEach     bool
		metricsOut    string
	)
	cmd := &cobra.Command{
		Use:   "enumerate <network.yaml>",
		Short: "Evaluate every candidate topology of a network definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()
			if !flags.Changed("workers") {
				workers = c.cfg.Enumeration.Workers
			}
			if !flags.Changed("max-optional") {
				maxOptional = c.cfg.Enumeration.MaxOptional
			}
			if !flags.Changed("reference") {
				reference = c.cfg.Synthesis.Reference
			}
			if !flags.Changed("optional-aware") {
				optionalAware = c.cfg.Synthesis.OptionalAware
			}

			client, err := c.openClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			req := boolnet.EnumerateRequest{
				DefinitionPath: args[0],
				SessionID:      sessionID,
				Reference:      reference,
				OptionalAware:  optionalAware,
				MaxOptional:    maxOptional,
				Workers:        workers,
				Limit:          limit,
			}
			if printEach {
				req.Visit = func(result boolnet.TopologyResult) error {
					fmt.Fprintf(c.out, "topology=%d interactions=%s\n", result.Index, formatTopology(result))
					return nil
				}
			}
			summary, err := client.Enumerate(ctx, req)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "session_id=%s topologies=%d visited=%d stopped=%t artifacts=%s\n",
				summary.SessionID, summary.Topologies, summary.Visited, summary.Stopped, summary.ArtifactsDir)
			if metricsOut != "" {
				if err := prometheus.WriteToTextfile(metricsOut, prometheus.DefaultGatherer); err != nil {
					return errors.Wrap(err, "write metrics")
				}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&sessionID, "session-id", "", "session id (default: random UUID)")
	flags.IntVar(&limit, "limit", 0, "stop after this many topologies (0 = all)")
	flags.IntVar(&workers, "workers", 1, "parallel topology workers")
	flags.IntVar(&maxOptional, "max-optional", 0, "maximum optional interactions accepted")
	flags.StringVar(&reference, "reference", "", "evaluator reference: first|per_experiment")
	flags.BoolVar(&optionalAware, "optional-aware", false, "hand optional edges to the evaluator")
	flags.BoolVar(&printEach, "print", false, "print every topology as it is evaluated")
	flags.StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics to this file after the run")
	return cmd
}

func newSessionsCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List persisted sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.Sessions(cmd.Context(), boolnet.SessionsRequest{Limit: limit})
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Fprintf(c.out, "session_id=%s created_at=%s components=%d definite=%d optional=%d experiments=%d topologies=%d reference=%s optional_aware=%t\n",
					item.SessionID, item.CreatedAtUTC, item.Components, item.Definite, item.Optional,
					item.Experiments, item.Topologies, item.Reference, item.OptionalAware)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to list")
	return cmd
}

func newTopologiesCmd(c *cli) *cobra.Command {
	var (
		sessionID string
		latest    bool
		limit     int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "topologies",
		Short: "Show the persisted topology results of a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			results, err := client.Topologies(cmd.Context(), boolnet.TopologiesRequest{
				SessionID: sessionID,
				Latest:    latest,
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(c.out)
			for _, result := range results {
				if asJSON {
					if err := encoder.Encode(result); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(c.out, "topology=%d keys=%d interactions=%s\n",
					result.Index, len(result.Consistency), formatTopology(result))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&sessionID, "session-id", "", "session to show")
	flags.BoolVar(&latest, "latest", false, "show the most recent session")
	flags.IntVar(&limit, "limit", 0, "maximum topologies to show (0 = all)")
	flags.BoolVar(&asJSON, "json", false, "print one JSON document per topology")
	return cmd
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <network.yaml>",
		Short: "Describe the components and interactions of a network definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			desc, err := client.Describe(cmd.Context(), boolnet.DescribeRequest{DefinitionPath: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprint(c.out, "components:\n", indent(desc.Components))
			fmt.Fprint(c.out, desc.Interactions)
			fmt.Fprintf(c.out, "conditions: %s\n", strings.Join(desc.Conditions, ", "))
			fmt.Fprintf(c.out, "experiments: %d\n", desc.Experiments)
			fmt.Fprintf(c.out, "topologies: %d\n", desc.Topologies)
			return nil
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	var (
		sessionID string
		latest    bool
		outDir    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a session's artifacts to another directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Export(cmd.Context(), boolnet.ExportRequest{
				SessionID: sessionID,
				Latest:    latest,
				OutDir:    outDir,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "exported session_id=%s dir=%s\n", summary.SessionID, summary.Directory)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&sessionID, "session-id", "", "session to export")
	flags.BoolVar(&latest, "latest", false, "export the most recent session")
	flags.StringVar(&outDir, "out", "exports", "output directory")
	return cmd
}

func newCountCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "count <optional-interactions>",
		Short: "Print how many topologies m optional interactions produce",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrapf(err, "parse optional interaction count %q", args[0])
			}
			n, err := boolnet.Count(m)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, n)
			return nil
		},
	}
}

func formatTopology(result boolnet.TopologyResult) string {
	parts := make([]string, 0, len(result.Topology))
	for _, interaction := range result.Topology {
		parts = append(parts, interaction.String())
	}
	return "[" + strings.Join(parts, "; ") + "]"
}

func indent(block string) string {
	lines := strings.Split(strings.TrimRight(block, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n") + "\n"
}
