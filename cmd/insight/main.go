package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/insight/config"
	"github.com/mohammad-safakhou/insight/internal/agent/core"
	"github.com/mohammad-safakhou/insight/internal/agent/telemetry"
	srv "github.com/mohammad-safakhou/insight/internal/server"
	"github.com/mohammad-safakhou/insight/provider"
)

func main() {
	var root = &cobra.Command{Use: "insight", Short: "Iterative web research agent"}

	var cfgPath string
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config.json")

	var query, model string
	var limit, retries int
	var ask = &cobra.Command{
		Use:   "ask",
		Short: "Answer a question with iterative web research",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" && len(args) > 0 {
				query = strings.Join(args, " ")
			}
			if strings.TrimSpace(query) == "" {
				return fmt.Errorf("query required (use --query or positional arguments)")
			}

			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if model != "" {
				cfg.LLM.Model = model
			}
			if limit > 0 {
				cfg.Search.MaxResults = limit
			}
			if retries >= 0 {
				cfg.Pipeline.MaxRetries = retries
			}

			tele := telemetry.NewTelemetry()
			if cfg.Telemetry.Enabled {
				go func() {
					if err := tele.Serve(cfg.Telemetry.MetricsPort); err != nil {
						log.Printf("metrics server stopped: %v", err)
					}
				}()
			}

			llmProvider, err := provider.NewProvider(cfg.LLM)
			if err != nil {
				return err
			}
			searcher, err := core.NewSearcherFromConfig(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
			orch, err := core.NewOrchestrator(cfg, llmProvider, searcher, orchLogger, tele)
			if err != nil {
				return err
			}

			state := orch.Run(cmd.Context(), query)

			fmt.Println(strings.Repeat("=", 60))
			fmt.Println("FINAL ANSWER")
			fmt.Println(strings.Repeat("=", 60))
			fmt.Println(state.FinalAnswer)
			fmt.Println(strings.Repeat("=", 60))
			fmt.Printf("rounds: %d, records: %d\n", state.RephrasingCount, len(state.QAResults))
			return nil
		},
	}
	ask.Flags().StringVarP(&query, "query", "q", "", "question to research")
	ask.Flags().StringVar(&model, "model", "", "override the configured model")
	ask.Flags().IntVar(&limit, "limit", 0, "max results per search query (0 = config default)")
	ask.Flags().IntVar(&retries, "retries", -1, "max query-rephrasing rounds (-1 = config default)")

	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")

	root.AddCommand(ask, serve)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
