package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/phax/ph-commons-sub015/objectpool/application"
	"github.com/phax/ph-commons-sub015/objectpool/domain"
	"github.com/phax/ph-commons-sub015/objectpool/infra"

	"go.uber.org/zap"
)

// maxKeptBuffer: buffers que cresceram além disso não voltam para o cache.
const maxKeptBuffer = 64 * 1024

func newBufferPool(size int, log *zap.Logger) (*infra.FixedPool[*bytes.Buffer], error) {
	return infra.New[*bytes.Buffer](size, infra.FactoryFuncs[*bytes.Buffer]{
		CreateFn:    func() *bytes.Buffer { return new(bytes.Buffer) },
		ActivateFn:  func(b *bytes.Buffer) bool { return b.Cap() <= maxKeptBuffer },
		PassivateFn: func(b *bytes.Buffer) { b.Reset() },
	}, infra.WithName("render-buffers"), infra.WithLogger(log))
}

// renderer monta a resposta inteira num buffer emprestado e só então escreve,
// assim um erro no meio não deixa uma resposta pela metade.
type renderer struct {
	svc application.BorrowService[*bytes.Buffer]
	log *zap.Logger
}

func (rd renderer) handle(contentType string, fn func(b *bytes.Buffer, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrote := false
		err := rd.svc.Do(r.Context(), func(b *bytes.Buffer) error {
			if err := fn(b, r); err != nil {
				return err
			}
			w.Header().Set("Content-Type", contentType)
			w.WriteHeader(http.StatusOK)
			wrote = true
			_, err := b.WriteTo(w)
			return err
		})
		if err == nil {
			return
		}
		rd.log.Warn("render failed", zap.String("path", r.URL.Path), zap.Bool("headers_sent", wrote), zap.Error(err))
		if wrote {
			// status já foi enviado, só resta registrar
			return
		}
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrCancelled) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, http.StatusText(status), status)
	}
}

func okPage(b *bytes.Buffer, _ *http.Request) error {
	_, err := b.WriteString("ok\n")
	return err
}

func showTela(b *bytes.Buffer, r *http.Request) error {
	_, err := fmt.Fprintf(b, "<h1>Tela do Sistema</h1><p>Requisição recebida com sucesso!</p><p>%s %s em %s</p>",
		r.Method, r.URL.Path, time.Now().Format(time.RFC3339))
	return err
}
