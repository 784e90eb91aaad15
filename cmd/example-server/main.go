package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phax/ph-commons-sub015/objectpool"
	"github.com/phax/ph-commons-sub015/objectpool/application"

	"go.uber.org/zap"
)

func main() {
	// Exemplo: servidor upstream que renderiza com buffers de um pool fixo.
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	buffers, err := newBufferPool(16, log)
	if err != nil {
		log.Fatal("buffer pool error", zap.Error(err))
	}

	rd := renderer{
		svc: application.BorrowService[*bytes.Buffer]{
			Pool:           buffers,
			AcquireTimeout: 2 * time.Second,
			Log:            log,
		},
		log: log,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", rd.handle("text/plain; charset=utf-8", okPage))
	mux.HandleFunc("/showTela", rd.handle("text/html; charset=utf-8", showTela))

	h := http.Handler(mux)
	h = objectpool.ConcurrencyMiddleware(objectpool.ConcurrencyOptions{Max: 50, Log: log})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("example server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
}
