package server

import (
	"context"
	"net"
	"runtime"
	"time"

	"github.com/pmquest/pmgame-server/internal/config"
	"github.com/pmquest/pmgame-server/internal/game"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// EngineService is the health service name reported for the game engine.
const EngineService = "pmgame.Engine"

// GRPCServer exposes the standard gRPC health service for the engine.
type GRPCServer struct {
	cfg    config.GRPCConfig
	logger *zap.Logger
	server *grpc.Server
	health *health.Server
}

// NewGRPCServer builds the gRPC server with recovery and logging
// interceptors and registers the health service.
func NewGRPCServer(cfg config.GRPCConfig, engine *game.Engine, logger *zap.Logger) *GRPCServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("grpc")

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}

	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	if engine != nil && engine.Context() != nil {
		hs.SetServingStatus(EngineService, healthpb.HealthCheckResponse_SERVING)
	} else {
		hs.SetServingStatus(EngineService, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	return &GRPCServer{cfg: cfg, logger: logger, server: srv, health: hs}
}

// Server returns the underlying grpc.Server.
func (s *GRPCServer) Server() *grpc.Server {
	return s.server
}

// Serve accepts connections on lis until Stop.
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("address", lis.Addr().String()))
	return s.server.Serve(lis)
}

// ListenAndServe listens on the configured address.
func (s *GRPCServer) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains open calls.
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

// RecoveryInterceptor turns a handler panic into an Internal error.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				logger.Error("panic in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", buf[:n]),
				)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every unary call with its duration and status.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			fields = append(fields, zap.String("peer", p.Addr.String()))
		}
		if err != nil {
			logger.Warn("gRPC call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("gRPC call", fields...)
		}
		return resp, err
	}
}
