package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"exam-solver/api/internal/app"
	"exam-solver/api/internal/config"
	"exam-solver/api/internal/handle"
	"exam-solver/api/internal/httpserver"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	log.Printf("generators: %v", a.LLMs.Names())
	if _, err := a.OCR.Get(""); err != nil {
		log.Printf("ocr: %v; image requests will fail", err)
	}

	h := handle.New(a.Jobs, a.Runner, a.OCR, a.LLMs)
	h.ParseTimeout = cfg.ParseTimeout
	mux := http.NewServeMux()
	h.Routes(mux)

	sweeper, err := a.StartSweeper(ctx)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, ":"+cfg.Port, mux, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		<-gctx.Done()
		<-sweeper.Stop().Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Printf("exam-solver: %v", err)
	}

	// сервер уже не принимает запросы; дожидаемся фоновых задач
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	a.Shutdown(sctx)
	log.Printf("exam-solver stopped")
}
