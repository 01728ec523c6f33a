// storeworker 消费商店上下文的命令主题。
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/allowance/bootstrap"
	"github.com/wyfcoding/allowance/eventsourcing"
	"github.com/wyfcoding/allowance/store"
	"github.com/wyfcoding/allowance/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New("store")
	if err != nil {
		os.Stderr.WriteString("bootstrap failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer app.Close()

	store.RegisterEvents(app.EventRegistry())

	eventStore, err := app.EventStore("store_events")
	if err != nil {
		app.Logger.ErrorContext(ctx, "open event store failed", "error", err)
		os.Exit(1)
	}

	repo := eventsourcing.NewRepository(eventStore, store.NewBlankStore).
		WithSnapshotStrategy(app.SnapshotStrategy())
	svc := store.NewService(repo, app.Read, app.Logger)

	registry := app.CommandRegistry()
	svc.RegisterCommands(registry)
	w := worker.New(registry, app.Logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Consume(ctx, app.Conf.Topics.Store, w.Handler())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error("store worker exited", "error", err)
		os.Exit(1)
	}
}
