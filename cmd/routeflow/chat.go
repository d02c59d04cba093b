package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	routeflow "github.com/BaSui01/routeflow"
	"github.com/BaSui01/routeflow/config"
	"github.com/BaSui01/routeflow/internal/metrics"
	"github.com/BaSui01/routeflow/llm"
	"github.com/BaSui01/routeflow/llm/routing"
)

var chatCommand = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message through the routing engine",
	Long: `Classifies the message, builds a fallback chain, and executes it.
The serving provider/model is chosen by the task classifier unless
--agent or --model is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runChatCmd,
}

var (
	chatConfigPath string
	chatAgent      string
	chatDeepSearch bool
	chatModel      string
	chatSystem     string
	chatNoStream   bool
	chatShowMeta   bool
)

func init() {
	chatCommand.Flags().StringVar(&chatConfigPath, "config", "", "Path to config.yaml (optional)")
	chatCommand.Flags().StringVarP(&chatAgent, "agent", "a", "", "Agent role: chat, resume, cover-letter, extract, code, study (default: task classification)")
	chatCommand.Flags().BoolVar(&chatDeepSearch, "deep-search", false, "Escalate chat agent to deep research routing")
	chatCommand.Flags().StringVarP(&chatModel, "model", "m", "", "Manual override as provider/model (e.g. openai/gpt-4o)")
	chatCommand.Flags().StringVar(&chatSystem, "system", "", "System prompt for this conversation")
	chatCommand.Flags().BoolVar(&chatNoStream, "no-stream", false, "Wait for the full response instead of streaming")
	chatCommand.Flags().BoolVar(&chatShowMeta, "show-meta", false, "Print execution metadata after the response")

	rootCmd.AddCommand(chatCommand)
}

func runChatCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().WithConfigPath(chatConfigPath).Load()
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync() //nolint:errcheck

	var recorder llm.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewCollector(cfg.Metrics.Namespace, logger)
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	eng, err := routeflow.New(
		routeflow.WithConfig(cfg),
		routeflow.WithLogger(logger),
		routeflow.WithRecorder(recorder),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var msgs []llm.Message
	if chatSystem != "" {
		msgs = append(msgs, llm.NewSystemMessage(chatSystem))
	}
	msgs = append(msgs, llm.NewUserMessage(args[0]))

	req := routeflow.Request{
		Messages:      msgs,
		Agent:         routing.AgentRole(chatAgent),
		DeepSearch:    chatDeepSearch,
		ModelOverride: chatModel,
	}

	if chatNoStream {
		return chatOnce(ctx, eng, req)
	}
	return chatStreaming(ctx, eng, req)
}

func chatOnce(ctx context.Context, eng *routeflow.Engine, req routeflow.Request) error {
	resp, meta, err := eng.Chat(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(resp.Text())
	printMeta(meta)
	return nil
}

func chatStreaming(ctx context.Context, eng *routeflow.Engine, req routeflow.Request) error {
	events, err := eng.ChatStream(ctx, req)
	if err != nil {
		return err
	}
	for ev := range events {
		switch ev.Type {
		case llm.EventText:
			fmt.Print(ev.Text)
		case llm.EventMetadata:
			fmt.Println()
			printMeta(ev.Metadata)
		case llm.EventError:
			fmt.Println()
			return ev.Err
		}
	}
	return ctx.Err()
}

func printMeta(meta *llm.ExecutionMetadata) {
	if !chatShowMeta || meta == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "\n[%s/%s task=%s attempts=%d tokens=%d cost=$%.5f quality=%.1f elapsed=%s]\n",
		meta.Provider, meta.Model, meta.Task, meta.Attempts,
		meta.Usage.TotalTokens, meta.EstimatedCost, meta.QualityScore, meta.Elapsed.Round(1e6))
}

// serveMetrics 暴露 Prometheus 指标端点，进程退出时随之结束。
func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics endpoint stopped", zap.Error(err))
	}
}
