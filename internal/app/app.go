package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
	"github.com/polkiloo/orderflow/internal/queue"
	"github.com/polkiloo/orderflow/internal/worker"
)

// Module wires application services, job handlers, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewOrderFacade,
		newHTTPServer,
	),
	fx.Invoke(registerWorkers, registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.HTTP.Address,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Queue  *queue.Runtime
	Facade *OrderFacade
	Config *config.Config
	Logger *zap.Logger
}

func registerWorkers(p workerParams) error {
	return worker.Register(p.Queue, p.Facade, p.Config.Queue, p.Logger.Named("worker"))
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *zap.Logger
	Server     *http.Server
	Queue      *queue.Runtime
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting orderflow", zap.String("addr", p.Server.Addr))
			if err := p.Queue.Start(ctx); err != nil {
				return err
			}
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", zap.Error(err))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.HTTP.ShutdownTimeout)
			}
			defer cancel()

			// Stop accepting dispatches before draining the workers.
			var errs []error
			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, err)
			}
			if err := p.Queue.Stop(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			if err := errors.Join(errs...); err != nil {
				return err
			}
			p.Logger.Info("orderflow stopped")
			return nil
		},
	})
}
