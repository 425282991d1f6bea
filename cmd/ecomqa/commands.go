// File path: cmd/ecomqa/commands.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nicodishanthj/ecomqa/internal/api"
	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/mcpserver"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question form and JSON API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := common.Logger()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		orch, err := openOrchestrator(ctx, false, true)
		if err != nil {
			return err
		}
		defer orch.Close()

		server, err := api.NewServer(orch, &api.Config{ChartCacheSize: orch.Config().ChartCacheSize})
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		httpServer := &http.Server{
			Addr:              serveAddr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.ListenAndServe()
		}()

		reachable := serveAddr
		if strings.HasPrefix(reachable, ":") {
			reachable = "localhost" + reachable
		}
		logger.Info("ecomqa: server listening", "addr", serveAddr, "health", "/healthz")
		fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", reachable)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server stopped: %w", err)
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("ecomqa: shutting down")
		return httpServer.Shutdown(shutdownCtx)
	},
}

var (
	askChartPath string
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the SQL, rows, summary and chart",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		orch, err := openOrchestrator(cmd.Context(), false, true)
		if err != nil {
			return err
		}
		defer orch.Close()

		answer, err := orch.Ask(cmd.Context(), question)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if askJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(answer); err != nil {
				return err
			}
		} else {
			fmt.Fprint(out, answer.Text())
		}
		if answer.Chart != nil && askChartPath != "" {
			if err := os.WriteFile(askChartPath, answer.Chart.SVG, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			if !askJSON {
				fmt.Fprintf(out, "Chart written to %s\n", askChartPath)
			}
		}
		if answer.Failure != nil {
			return fmt.Errorf("%s stage failed", answer.Failure.Stage)
		}
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Rebuild the store from the CSV files and report row counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := openOrchestrator(cmd.Context(), true, false)
		if err != nil {
			return err
		}
		defer orch.Close()

		report, loadErr := orch.Reload(cmd.Context())
		out := cmd.OutOrStdout()
		if report != nil {
			for _, table := range report.Tables {
				if table.Error != "" {
					fmt.Fprintf(out, "%-12s %s: %s\n", table.Table, table.Path, table.Error)
					continue
				}
				fmt.Fprintf(out, "%-12s %s: %d rows, %d columns\n", table.Table, table.Path, table.Rows, len(table.Columns))
			}
			if report.Hint != "" {
				fmt.Fprintln(out, report.Hint)
			}
		}
		return loadErr
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the tables and columns of the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := openOrchestrator(cmd.Context(), true, true)
		if err != nil {
			return err
		}
		defer orch.Close()

		tables, description, err := orch.Schema(cmd.Context())
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tables loaded.")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), strings.TrimPrefix(description, "\n"))
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the ask_data and describe_schema tools over MCP stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := openOrchestrator(cmd.Context(), false, true)
		if err != nil {
			return err
		}
		defer orch.Close()
		return mcpserver.Serve(orch, version)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	askCmd.Flags().StringVar(&askChartPath, "chart", "", "write the chart SVG to this file")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer as JSON")

	rootCmd.AddCommand(serveCmd, askCmd, loadCmd, schemaCmd, mcpCmd)
}
