package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lemans-dev/sdr-whatsapp/internal/agents"
	"github.com/lemans-dev/sdr-whatsapp/internal/buffer"
	"github.com/lemans-dev/sdr-whatsapp/internal/handlers"
	"github.com/lemans-dev/sdr-whatsapp/internal/processor"
	"github.com/lemans-dev/sdr-whatsapp/internal/routes"
	"github.com/lemans-dev/sdr-whatsapp/internal/services"
)

const (
	httpShutdownTimeout   = 10 * time.Second
	bufferShutdownTimeout = 30 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg, true)
	if err != nil {
		return err
	}
	defer closeStore()

	gateway, err := services.NewGateway(cfg.Gateway)
	if err != nil {
		return fmt.Errorf("init gateway: %w", err)
	}

	llm := services.NewOpenAIService(cfg.OpenAI, cfg.Knowledge.EmbeddingDimensions)

	var knowledge agents.KnowledgeSearcher
	if cfg.Knowledge.Enabled {
		knowledge = services.NewKnowledgeService(llm, store, cfg.Knowledge)
	}

	deps := agents.Deps{
		Store:    store,
		LLM:      llm,
		Executor: agents.NewLeadToolExecutor(store),
	}
	supervisor, err := agents.NewSupervisor(store,
		agents.NewGeral(deps, cfg.Company),
		agents.NewLoteamentos(deps, cfg.Company, knowledge),
		agents.NewConstrutora(deps, cfg.Company, knowledge),
	)
	if err != nil {
		return err
	}

	buf := buffer.New(cfg.Buffer.Quiet)
	proc := processor.New(supervisor, gateway, buf, cfg.Company)

	app := routes.NewApp("Sistema SDR Multi-Agentes v"+Version, true)
	health := &handlers.HealthHandler{
		Version:             Version,
		Environment:         cfg.Server.Env,
		DB:                  store,
		Gateway:             gateway,
		Buffer:              buf,
		OpenAIConfigured:    cfg.OpenAI.APIKey != "",
		KnowledgeConfigured: cfg.Knowledge.Enabled,
	}
	routes.SetupRoutes(app, cfg, handlers.NewWhatsAppHandler(proc, cfg.Gateway.Evolution.Instance), health)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server")
		if err := app.ShutdownWithTimeout(httpShutdownTimeout); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting",
		"addr", cfg.Server.Addr(),
		"environment", cfg.Server.Env,
		"gateway", cfg.Gateway.Provider,
		"memory_store", cfg.UseMemoryStore,
		"knowledge_base", cfg.Knowledge.Enabled,
		"buffer_quiet", cfg.Buffer.Quiet)

	listenErr := app.Listen(cfg.Server.Addr())

	stopCtx, cancel := context.WithTimeout(context.Background(), bufferShutdownTimeout)
	defer cancel()
	if err := buf.Stop(stopCtx); err != nil {
		slog.Error("message buffer did not drain", "error", err)
	}

	return listenErr
}
