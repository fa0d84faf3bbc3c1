package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/klarifai/queen-rag/internal/controller"
	"github.com/klarifai/queen-rag/internal/engine"
	"github.com/klarifai/queen-rag/internal/usage"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	provider, err := buildProvider(ctx, st.cfg)
	if err != nil {
		return err
	}

	if err := st.store.Reconcile(ctx); err != nil {
		st.log.Error().Err(err).Msg("startup reconcile failed")
	}
	go st.store.Watch(ctx)

	tracker := usage.New(st.cfg.Storage.UsagePath, st.log)

	eng := engine.New(provider, st.index, tracker, engine.Config{
		Temperature: st.cfg.LLM.Temperature,
		MaxTokens:   st.cfg.LLM.MaxTokens,
		TopK:        st.cfg.Retrieval.TopK,
	}, nil, st.log)

	ctl := controller.New(eng, st.store, tracker, st.embedder.Name(), st.cfg.Storage.MaxUploadSize, st.log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", st.cfg.Server.Port),
		Handler: ctl.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		st.log.Info().
			Int("port", st.cfg.Server.Port).
			Str("model", provider.Model()).
			Str("embedding_model", st.embedder.Name()).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	st.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
