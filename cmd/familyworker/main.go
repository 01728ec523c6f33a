// familyworker 消费家庭/用户上下文的命令主题，并向其他上下文编排后续命令。
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
	"github.com/wyfcoding/allowance/family"
	"github.com/wyfcoding/allowance/identity"
	"github.com/wyfcoding/allowance/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New("family")
	if err != nil {
		os.Stderr.WriteString("bootstrap failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer app.Close()

	family.RegisterEvents(app.EventRegistry())

	store, err := app.EventStore("family_events")
	if err != nil {
		app.Logger.ErrorContext(ctx, "open event store failed", "error", err)
		os.Exit(1)
	}

	repo := eventsourcing.NewRepository(store, family.NewBlankFamily).
		WithSnapshotStrategy(app.SnapshotStrategy())

	svc := family.NewService(
		repo,
		app.Read,
		app.Notifier(),
		identity.NewLogProvider(app.Conf.Identity, app.Logger),
		app.CommandClient(app.Conf.Topics.Family),
		app.CommandClient(app.Conf.Topics.Store),
		app.Conf.Identity.Enabled,
		app.Logger,
	)

	registry := app.CommandRegistry()
	svc.RegisterCommands(registry)
	w := worker.New(registry, app.Logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Consume(ctx, app.Conf.Topics.Family, w.Handler())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error("family worker exited", "error", err)
		os.Exit(1)
	}
}
