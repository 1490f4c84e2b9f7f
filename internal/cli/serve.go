package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	gfhttp "github.com/aretw0/geofence/pkg/adapters/http"
	gfmcp "github.com/aretw0/geofence/pkg/adapters/mcp"
	"github.com/aretw0/geofence/pkg/adapters/stream"
	"github.com/aretw0/geofence/pkg/coordinator"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	serverReadHeaderTimeout = 10 * time.Second
	gracefulTimeout         = 10 * time.Second
)

// Serve listens on the configured address and runs the HTTP API, the event
// loop and the reconciler until ctx is done.
func Serve(ctx context.Context, rt *Runtime, out io.Writer) error {
	ln, err := net.Listen("tcp", rt.Config.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", rt.Config.Listen, err)
	}
	return ServeListener(ctx, rt, ln, out)
}

// ServeListener is Serve on an existing listener. The listener is closed on return.
func ServeListener(ctx context.Context, rt *Runtime, ln net.Listener, out io.Writer) error {
	cfg := rt.Config
	svc := rt.Service
	events := make(chan domain.TransitionEvent, cfg.EventBuffer)

	restore(ctx, rt, out)

	handlerOpts := []gfhttp.Option{
		gfhttp.WithLogger(rt.Logger.With("component", "http")),
		gfhttp.WithStreams(rt.Streams),
	}
	if rt.Registry != nil {
		handlerOpts = append(handlerOpts, gfhttp.WithMetrics(promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{})))
	}
	srv := &http.Server{
		Handler:           gfhttp.NewHandler(svc, events, handlerOpts...),
		ReadHeaderTimeout: serverReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(svc.Run(gctx, events))
	})
	if cfg.ReconcileInterval > 0 {
		rec := svc.NewReconciler(coordinator.WithInterval(cfg.ReconcileInterval))
		g.Go(func() error {
			return ignoreCanceled(rec.Run(gctx))
		})
	}
	g.Go(func() error {
		rt.Logger.Info("http server listening", "addr", ln.Addr().String())
		printSystemMessage(out, "Listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), gracefulTimeout)
		defer cancel()
		rt.Logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Replay routes every JSON-lines event read from r, in order. With register
// set the landmarks are registered first.
func Replay(ctx context.Context, rt *Runtime, r io.Reader, register bool) error {
	svc := rt.Service
	if register {
		if _, err := svc.Register(ctx); err != nil {
			return err
		}
		if err := svc.WaitIdle(ctx); err != nil {
			return err
		}
	}

	events := make(chan domain.TransitionEvent)
	pumpErr := make(chan error, 1)
	go func() {
		defer close(events)
		pumpErr <- stream.Pump(ctx, r, events, rt.Logger.With("component", "replay"))
	}()

	if err := svc.Run(ctx, events); err != nil {
		return err
	}
	if err := <-pumpErr; err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	return svc.WaitIdle(ctx)
}

// ServeMCP exposes the service as MCP tools over stdio.
func ServeMCP(ctx context.Context, rt *Runtime) error {
	restore(ctx, rt, io.Discard)

	events := make(chan domain.TransitionEvent, rt.Config.EventBuffer)
	go func() {
		_ = rt.Service.Run(ctx, events)
	}()
	return gfmcp.NewServer(rt.Service, events, rt.Logger.With("component", "mcp")).ServeStdio()
}

func restore(ctx context.Context, rt *Runtime, out io.Writer) {
	if !rt.Config.Restore {
		return
	}
	restored, err := rt.Service.Restore(ctx)
	switch {
	case err != nil:
		rt.Logger.Warn("restore failed", "error", err)
	case restored:
		printSystemMessage(out, "Restored landmark registration.")
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
