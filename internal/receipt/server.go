package receipt

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"conti/internal/log"
)

// Server hosts the ReceiptAnalyzer service and the standard health service.
type Server struct {
	addr   string
	lis    net.Listener
	health *health.Server
	Server *grpc.Server
}

// NewServer builds the gRPC server. An empty token disables authentication.
func NewServer(addr, token string, analyzer Analyzer, logger *log.Logger) *Server {
	if logger == nil {
		logger = defaultLogger()
	}
	interceptors := []grpc.UnaryServerInterceptor{LoggingInterceptor(logger)}
	if token != "" {
		interceptors = append(interceptors, AuthInterceptor(token))
	} else {
		logger.Warn("Receipt analyzer running without authentication")
	}

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	RegisterAnalyzerServer(s, analyzerService{analyzer: analyzer})

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{addr: addr, health: hs, Server: s}
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.lis = lis
	return s.Server.Serve(lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.Server.GracefulStop()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// AuthInterceptor rejects calls whose authorization metadata does not carry
// the shared token. Health checks are always allowed.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if info != nil && info.FullMethod == healthpb.Health_Check_FullMethodName {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		if authHeaders[0] != validToken {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}

// LoggingInterceptor logs method, status code and duration of every unary call.
func LoggingInterceptor(logger *log.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = defaultLogger()
	}
	sl := log.NewStructuredLogger(logger)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		sl.LogRPC(ctx, info.FullMethod, status.Code(err).String(), time.Since(start).Milliseconds(), err)
		return resp, err
	}
}

func defaultLogger() *log.Logger {
	return log.New(log.Config{Component: log.ComponentReceipt, Handler: slog.Default().Handler()})
}
