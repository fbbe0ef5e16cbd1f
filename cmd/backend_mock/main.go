package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"emergency-alert/internal/handler"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dirPath := flag.String("directory", "cmd/backend_mock/comunidades.json", "communities file")
	flag.Parse()

	logger := logrus.New()

	dir, err := handler.LoadDirectory(*dirPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load communities")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := handler.NewHandler(logger, dir)
	server := &http.Server{
		Addr:    *addr,
		Handler: h.Routes(),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server ListenAndServe error")
		}
	}()

	logger.WithField("communities", len(dir.Comunidades)).Infof("Backend mock listening on %s", *addr)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("server forced to shutdown")
	} else {
		logger.Info("Server stopped gracefully")
	}
}
