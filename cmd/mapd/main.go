// Command mapd serves the map backend: place search, routes and nearby events.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gobusker/gobusker-map/bootstrap"
	httpx "github.com/gobusker/gobusker-map/http"
)

const serviceName = "gobusker-map"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Initialize(ctx, serviceName, bootstrap.DefaultOptions())
	if err != nil {
		// Logger is not available yet.
		os.Stderr.WriteString("mapd: " + err.Error() + "\n")
		os.Exit(1)
	}

	server := httpx.NewServer(httpx.ServerConfigFrom(svc.Config), svc.Router, svc.Logger)
	runErr := server.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	svc.Close(shutdownCtx)

	if runErr != nil {
		svc.Logger.Error("server stopped", "error", runErr)
		os.Exit(1)
	}
	svc.Logger.Info("server stopped")
}
