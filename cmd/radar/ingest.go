package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/siherrmann/radar/core/ingest"
	"github.com/siherrmann/radar/model"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the vector extension, tables and functions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRadar(cmd, false)
		if err != nil {
			return err
		}
		defer r.Close()

		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Database initialized")
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Fetch a web page and ingest it as a signal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRadar(cmd, true)
		if err != nil {
			return err
		}
		defer r.Close()

		result, err := r.IngestURL(commandContext(cmd), args[0])
		if err != nil {
			return err
		}

		printMergeResult(cmd.OutOrStdout(), result)
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|-]",
	Short: "Ingest a text file or standard input as a signal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ingest.StdinPath
		if len(args) == 1 {
			path = args[0]
		}

		signal, err := ingest.ReadSource(path, cmd.InOrStdin())
		if err != nil {
			return err
		}

		r, err := openRadar(cmd, true)
		if err != nil {
			return err
		}
		defer r.Close()

		result, err := r.Ingest(commandContext(cmd), signal)
		if err != nil {
			return err
		}

		printMergeResult(cmd.OutOrStdout(), result)
		return nil
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <text>",
	Short: "Ingest a short note given on the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRadar(cmd, true)
		if err != nil {
			return err
		}
		defer r.Close()

		result, err := r.IngestText(commandContext(cmd), strings.Join(args, " "))
		if err != nil {
			return err
		}

		printMergeResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd, scanCmd, ingestCmd, noteCmd)
}

func printMergeResult(w io.Writer, result *model.MergeResult) {
	color.New(color.FgGreen, color.Bold).Fprintln(w, "Signal Ingested Successfully")
	fmt.Fprintf(w, "  Title:       %s\n", result.Signal.Title)
	fmt.Fprintf(w, "  Source:      %s\n", result.Signal.Source)
	fmt.Fprintf(w, "  Length:      %d\n", len([]rune(result.Signal.RawText)))
	fmt.Fprintf(w, "  Entities:    %d new, %d existing\n", result.EntitiesCreated, result.EntitiesReused)
	fmt.Fprintf(w, "  Trends:      %d new, %d existing\n", result.TrendsCreated, result.TrendsReused)
	fmt.Fprintf(w, "  Connections: %d\n", result.ConnectionsCreated)
	if result.DroppedConnections > 0 {
		color.New(color.FgYellow).Fprintf(w, "  Dropped:     %d unresolved connections\n", result.DroppedConnections)
	}
}
