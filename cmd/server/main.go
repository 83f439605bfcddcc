package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"reuben/internal/config"
	"reuben/internal/exchange"
	"reuben/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the exchange config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	// The exchange boots closed: the operator CLI's "start" command is
	// what opens it for trading (see TestAcceptingDefaultsFalse).
	ex := exchange.New(*cfg)

	srv := transport.NewServer(ex)
	srv.Run()

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Handler()}

	var t tomb.Tomb
	t.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	t.Go(func() error {
		select {
		case <-ctx.Done():
		case <-t.Dying():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
	}
}
