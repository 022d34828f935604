package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	memoryx "github.com/KohJunJie/tour-agent-planner/agent/memory"
	orchestratorx "github.com/KohJunJie/tour-agent-planner/agent/orchestrator"
	plannerx "github.com/KohJunJie/tour-agent-planner/agent/planner"
	toolx "github.com/KohJunJie/tour-agent-planner/agent/tool"
	gatewayx "github.com/KohJunJie/tour-agent-planner/gateway"
	configx "github.com/KohJunJie/tour-agent-planner/pkg/config"
	_ "github.com/KohJunJie/tour-agent-planner/pkg/logger/autoload"
)

func main() {
	memoryCfg := configx.MustNew[memoryx.Config]("MEMORY")
	toolCfg := configx.MustNew[toolx.Config]("TOOL")
	serverCfg := configx.MustNew[gatewayx.Config]("SERVER")

	store, err := memoryx.NewStore(*memoryCfg, memoryx.NewEmbedder(*memoryCfg))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open memory store")
	}

	registry := toolx.NewRegistry(*toolCfg)

	orchestrator, err := orchestratorx.New(registry, store, plannerx.BuildGraph, orchestratorx.Config{
		MemoryTopK: memoryCfg.TopK,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	server, err := gatewayx.NewServer(orchestrator, gatewayx.StubTranscriber{}, *serverCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build gateway")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("gateway stopped")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown failed")
		}
	}
}
