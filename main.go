// Command standards-gateway serves the multi-tenant authenticated
// gateway in front of the upstream LLM dialog platform and the Neo4j
// graph database. It wires every domain service together: identity and
// session (auth), the task store and state machine (store), the
// upstream router (upstream), the async job executor (jobs), the result
// extractor and paginator (extract), and the document exporter
// (export), then serves them over HTTP (httpapi).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"standards-gateway/auth"
	"standards-gateway/common"
	"standards-gateway/config"
	"standards-gateway/extract"
	"standards-gateway/fileio"
	"standards-gateway/httpapi"
	"standards-gateway/jobs"
	"standards-gateway/store"
	"standards-gateway/upstream"
)

// staleProcessingAge is the threshold the startup sweeper uses to flip
// orphaned `processing` tasks to `failed`, resolving the open question
// in the design notes: a restarted process has no way to tell a stuck
// job from a genuinely long-running one, so it trades a small risk of
// false-failing a slow job for never leaving tasks stuck forever.
const staleProcessingAge = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		common.Logger.WithError(err).Fatal("failed to load configuration")
	}

	if err := common.Configure(cfg.Log.Level, cfg.Log.JSON, cfg.Log.ToStdout, common.FileConfig{
		Enabled:   cfg.Log.ToFile,
		Path:      cfg.Log.FilePath,
		MaxBytes:  cfg.Log.MaxBytes,
		BackupCnt: cfg.Log.BackupCnt,
	}); err != nil {
		common.Logger.WithError(err).Fatal("failed to configure logging")
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		common.Logger.WithError(err).Fatal("failed to open database")
	}
	if err := st.Migrate(); err != nil {
		common.Logger.WithError(err).Fatal("failed to migrate database")
	}

	if swept, err := st.SweepStaleProcessing(staleProcessingAge); err != nil {
		common.Logger.WithError(err).Warn("startup stale-processing sweep failed")
	} else if swept > 0 {
		common.Logger.WithField("count", swept).Warn("force-failed stale processing tasks on startup")
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecretKey, cfg.Auth.AccessTokenExpires)
	revoked := auth.NewRevokedSet()
	stopPruner := make(chan struct{})
	go revoked.RunPruner(10*time.Minute, stopPruner)

	authService := auth.NewService(st, tokens, revoked)

	router := upstream.NewRouter(cfg)
	extractor := extract.NewService()
	cache := extract.NewCache(cfg.RedisAddr, 10*time.Minute)
	executor := jobs.NewExecutor(st, router, extractor, cache)
	paths := fileio.NewPaths(cfg.Storage)

	var graph *store.GraphRepository
	if cfg.Neo4jURI != "" {
		graph, err = store.NewGraphRepository(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			common.Logger.WithError(err).Warn("failed to connect to neo4j, graph routes will error")
		}
	}

	deps := &httpapi.Deps{
		Config:    cfg,
		Store:     st,
		Auth:      authService,
		Router:    router,
		Executor:  executor,
		Extractor: extractor,
		Cache:     cache,
		Paths:     paths,
		Graph:     graph,
	}

	serverCfg := httpapi.DefaultServerConfig(cfg.Port)
	e := httpapi.NewEcho(serverCfg)
	httpapi.RegisterRoutes(e, deps)

	go func() {
		if err := httpapi.StartServer(e, serverCfg); err != nil {
			common.Logger.WithError(err).Fatal("http server exited with error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	close(stopPruner)
	if err := httpapi.GracefulShutdown(e, serverCfg.ShutdownTimeout); err != nil {
		common.Logger.WithError(err).Error("error during graceful shutdown")
	}
	if graph != nil {
		_ = graph.Close(context.Background())
	}
}
