package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/siherrmann/radar/model"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the closest signals",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRadar(cmd, true)
		if err != nil {
			return err
		}
		defer r.Close()

		answer, err := r.Ask(commandContext(cmd), strings.Join(args, " "))
		if err != nil {
			return err
		}

		printAnswer(cmd.OutOrStdout(), answer)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph counts and the most recent signals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRadar(cmd, false)
		if err != nil {
			return err
		}
		defer r.Close()

		ctx := commandContext(cmd)
		stats, err := r.Stats(ctx)
		if err != nil {
			return err
		}
		recent, err := r.RecentSignals(ctx, 10)
		if err != nil {
			return err
		}

		printStats(cmd.OutOrStdout(), stats, recent)
		return nil
	},
}

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export entities and connections as JSON nodes and links",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRadar(cmd, false)
		if err != nil {
			return err
		}
		defer r.Close()

		export, err := r.Export(commandContext(cmd))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			file, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer file.Close()
			out = file
		}

		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(export)
	},
}

var neighborHops int

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <entity>",
	Short: "List the entities connected to an entity",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRadar(cmd, false)
		if err != nil {
			return err
		}
		defer r.Close()

		ctx := commandContext(cmd)
		nodes, err := r.Neighborhood(ctx, strings.Join(args, " "), neighborHops)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, node := range nodes {
			entity, err := r.Store.Entities.SelectEntity(ctx, node.EntityID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s%s (%s)\n", strings.Repeat("  ", node.Depth), entity.Name, entity.Type)
		}
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:       "index <hnsw|ivfflat>",
	Short:     "Rebuild the signal vector index",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"hnsw", "ivfflat"},
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRadar(cmd, false)
		if err != nil {
			return err
		}
		defer r.Close()

		params := map[string]interface{}{}
		for _, name := range []string{"m", "ef-construction", "lists"} {
			if !cmd.Flags().Changed(name) {
				continue
			}
			n, err := cmd.Flags().GetInt(name)
			if err != nil {
				return err
			}
			params[strings.ReplaceAll(name, "-", "_")] = n
		}

		return r.ChangeIndexType(commandContext(cmd), args[0], params)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	indexCmd.Flags().Int("m", 16, "hnsw: max connections per layer")
	indexCmd.Flags().Int("ef-construction", 64, "hnsw: candidate list size during build")
	indexCmd.Flags().Int("lists", 100, "ivfflat: number of inverted lists")
	neighborsCmd.Flags().IntVar(&neighborHops, "hops", 0, "maximum number of hops (default from retrieval.max_hops)")

	rootCmd.AddCommand(askCmd, statsCmd, exportCmd, neighborsCmd, indexCmd)
}

func printAnswer(w io.Writer, answer *model.Answer) {
	color.New(color.FgCyan, color.Bold).Fprintln(w, answer.Question)
	fmt.Fprintln(w, answer.Text)
	if len(answer.Sources) == 0 {
		return
	}

	fmt.Fprintln(w)
	color.New(color.Faint).Fprintln(w, "Sources:")
	for i, s := range answer.Sources {
		location := string(s.Source)
		if s.URL != nil {
			location = *s.URL
		}
		fmt.Fprintf(w, "  [%d] %s (%s, distance %.3f)\n", i+1, s.Title, location, s.Distance)
	}
}

func printStats(w io.Writer, stats *model.GraphStats, recent []*model.Signal) {
	heading := color.New(color.Bold)

	heading.Fprintln(w, "System Status")
	fmt.Fprintf(w, "  Signals:     %d\n", stats.Signals)
	fmt.Fprintf(w, "  Entities:    %d\n", stats.Entities)
	fmt.Fprintf(w, "  Connections: %d\n", stats.Connections)
	fmt.Fprintf(w, "  Trends:      %d\n", stats.Trends)

	if len(recent) == 0 {
		return
	}

	fmt.Fprintln(w)
	heading.Fprintln(w, "Recent Signals")
	for _, s := range recent {
		title := s.Title
		if len([]rune(title)) > 60 {
			title = model.Truncate(title, 60) + "..."
		}
		fmt.Fprintf(w, "  %s  %-6s  %s\n", s.Date.Format("2006-01-02"), s.Source, title)
	}
}
