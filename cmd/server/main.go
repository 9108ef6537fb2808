package main

import (
	"context"
	"os/signal"
	"syscall"

	"matchcore/internal/router"
	"matchcore/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	rtr, ctx := router.NewRouter(ctx, "AAPL", "MSFT", "GOOG")
	defer rtr.Shutdown()

	srv := server.New("0.0.0.0", 9001, rtr)

	go srv.Run(ctx)
	<-ctx.Done()
}
