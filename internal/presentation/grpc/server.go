package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/hunters2410/zimaio-sub004/pkg/auth"
	"github.com/hunters2410/zimaio-sub004/pkg/tlsutil"
)

const healthServiceName = "payment-service"

// ServerConfig configures the gRPC listener.
type ServerConfig struct {
	Port             int
	TLSCertFile      string
	TLSKeyFile       string
	TLSClientCAFile  string
	EnableReflection bool
}

// Server wraps a gRPC server with health checks and the transaction handler.
type Server struct {
	grpcServer *grpclib.Server
	health     *health.Server
	handler    *Handler
	logger     *slog.Logger
	port       int
}

// NewServer creates a new gRPC Server. Every TransactionService call needs a
// token carrying the service role; the health service is open.
func NewServer(handler *Handler, cfg ServerConfig, validator auth.TokenValidator, logger *slog.Logger) (*Server, error) {
	authInterceptor := auth.UnaryAuthInterceptor(validator, []string{
		"/grpc.health.v1.Health/Check",
		"/grpc.health.v1.Health/Watch",
	})

	serverOpts := []grpclib.ServerOption{
		grpclib.ChainUnaryInterceptor(authInterceptor, serviceRoleOnly()),
	}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		creds, err := tlsutil.ServerTLSConfig(cfg.TLSCertFile, cfg.TLSKeyFile, cfg.TLSClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("loading grpc tls credentials: %w", err)
		}
		serverOpts = append(serverOpts, grpclib.Creds(creds))
		logger.Info("gRPC TLS enabled", "cert", cfg.TLSCertFile, "mtls", cfg.TLSClientCAFile != "")
	} else {
		logger.Info("gRPC TLS not configured, running without TLS")
	}

	grpcServer := grpclib.NewServer(serverOpts...)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(healthServiceName, healthpb.HealthCheckResponse_SERVING)

	RegisterTransactionServiceServer(grpcServer, handler)

	if cfg.EnableReflection {
		reflection.Register(grpcServer)
	}

	return &Server{
		grpcServer: grpcServer,
		health:     healthSrv,
		handler:    handler,
		logger:     logger,
		port:       cfg.Port,
	}, nil
}

// Start begins listening for gRPC connections.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen on %s: %w", addr, err)
	}

	s.logger.Info("gRPC server starting", "addr", addr)
	return s.Serve(lis)
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop marks the service not serving and drains in-flight calls.
func (s *Server) Stop() {
	s.logger.Info("gRPC server stopping")
	s.health.SetServingStatus(healthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	s.grpcServer.GracefulStop()
}

func serviceRoleOnly() grpclib.UnaryServerInterceptor {
	requireService := auth.RequireRole(auth.RoleServiceRole)
	prefix := "/" + transactionServiceName + "/"
	return func(ctx context.Context, req interface{}, info *grpclib.UnaryServerInfo, handler grpclib.UnaryHandler) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, prefix) {
			return requireService(ctx, req, info, handler)
		}
		return handler(ctx, req)
	}
}
