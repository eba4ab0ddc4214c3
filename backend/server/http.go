package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pc-insight/backend/global"
)

// StartHTTPServer serves until ctx is cancelled, then drains in-flight
// requests before returning.
func StartHTTPServer(ctx context.Context, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%d", global.Config.HTTP.Host, global.Config.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		global.Logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		global.Logger.Info().Msg("http server stopped")
		return nil
	}
}
