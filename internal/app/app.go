package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run поднимает зависимости, gRPC и HTTP-серверы и фоновые воркеры и
// блокируется до отмены ctx или ошибки одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.WithField("version", version.Current().String()).Info("starting")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	grpcServer, healthServer := newGRPCServer(deps, logger)
	httpServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           newHTTPHandler(deps, cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", cfg.GRPCAddr)
	}
	httpLis, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		_ = lis.Close()
		return errors.Wrapf(err, "listen %s", cfg.MetricsAddr)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("gRPC сервер слушает %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return errors.Wrap(err, "grpc serve")
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("метрики и health checks доступны на %s", httpLis.Addr())
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http serve")
		}
		return nil
	})
	g.Go(func() error {
		deps.Outbox.Run(gctx)
		return nil
	})
	if purger := deps.CachePurgeWorker(cfg.CachePurgeInterval); purger != nil {
		g.Go(func() error {
			purger.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("получен сигнал остановки, останавливаем серверы")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		shutdown(grpcServer, httpServer, cfg.ShutdownTimeout, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func newGRPCServer(deps *Dependencies, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	serviceLogger := logger.WithField("layer", "grpc")
	grpcsvc.RegisterOrderServiceServer(server, grpcsvc.NewOrderService(deps.Orders, serviceLogger))
	grpcsvc.RegisterCatalogServiceServer(server, grpcsvc.NewCatalogService(deps.Catalog, serviceLogger))
	grpcMetrics.InitializeMetrics(server)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)
	return server, healthServer
}

// newHTTPHandler отдаёт /metrics и probe-эндпоинты.
func newHTTPHandler(deps *Dependencies, cfg Config) http.Handler {
	checks := healthcheck.NewHandler(version.Current().Version)
	checks.RegisterChecker("storage", healthcheck.NewPingChecker("storage", deps.Store))
	checks.RegisterChecker("outbox", healthcheck.NewOutboxChecker(deps.Store.Outbox(), cfg.OutboxMaxPending, cfg.OutboxMaxAge))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", checks)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", checks.ReadinessHandler)
	return mux
}

func shutdown(grpcServer *grpc.Server, httpServer *http.Server, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		grpcServer.Stop()
	}

	if err := httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
