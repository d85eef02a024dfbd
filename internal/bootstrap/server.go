package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/markgate/markgate/internal/config"

	"github.com/appleboy/graceful"
)

// expiredCredentialSweepInterval is how often expired authorization codes
// and refresh tokens are purged from the store.
const expiredCredentialSweepInterval = 10 * time.Minute

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// startWithGracefulShutdown serves HTTP and runs the background sweeper
// until an interrupt, then shuts both down in order.
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			log.Printf("Server starting on %s (issuer %s)", app.Config.ServerAddr, app.Config.BaseURL)
			if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	m.AddRunningJob(func(ctx context.Context) error {
		app.sweepExpiredCredentials(ctx)
		return nil
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := app.Server.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}
		log.Println("Server exited")
		return nil
	})

	m.AddShutdownJob(func() error {
		return app.FlowStates.Close()
	})

	<-m.Done()
}

// sweepExpiredCredentials periodically deletes expired authorization codes
// and refresh tokens until the context is cancelled.
func (app *Application) sweepExpiredCredentials(ctx context.Context) {
	ticker := time.NewTicker(expiredCredentialSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := app.Store.DeleteExpiredAuthorizationCodes(); err != nil {
				log.Printf("[Sweep] Failed to delete expired codes: %v", err)
			} else if n > 0 {
				log.Printf("[Sweep] Deleted %d expired authorization codes", n)
			}
			if n, err := app.Store.DeleteExpiredRefreshTokens(); err != nil {
				log.Printf("[Sweep] Failed to delete expired refresh tokens: %v", err)
			} else if n > 0 {
				log.Printf("[Sweep] Deleted %d expired refresh tokens", n)
			}
		}
	}
}
