package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/stock-lookup/internal/adapter/handler"
	logx "github.com/rl1809/stock-lookup/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	a, err := newApp(startCtx)
	cancel()
	if err != nil {
		return err
	}
	defer a.Close()

	errCh := make(chan error, 2)

	// Initialize gRPC server
	var grpcServer *grpc.Server
	healthServer := health.NewServer()
	if a.cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", a.cfg.GRPC.Addr)
		if err != nil {
			return err
		}

		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(handler.LoggingInterceptor))
		handler.RegisterLookupServiceServer(grpcServer, handler.NewGRPCHandler(a.lookup))
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

		go func() {
			logx.Info().Str("addr", a.cfg.GRPC.Addr).Msg("gRPC server listening")
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(a.lookup, a.catalog)
	httpServer := &http.Server{
		Addr: a.cfg.HTTP.Addr,
		Handler: handler.NewRouter(httpHandler.Routes(), handler.RouterOptions{
			RequestTimeout: a.cfg.HTTP.RequestTimeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", a.cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logx.Error().Err(err).Msg("server error")
	}

	logx.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("HTTP shutdown")
	}
	logx.Info().Msg("HTTP server stopped")

	if grpcServer != nil {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		logx.Info().Msg("gRPC server stopped")
	}

	return nil
}
