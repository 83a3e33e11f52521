package receipt

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"conti/internal/core"
)

const (
	serviceName   = "conti.receipt.v1.ReceiptAnalyzer"
	analyzeMethod = "/" + serviceName + "/Analyze"
)

type AnalyzeRequest struct {
	Image string `json:"image"`
}

type AnalyzeResponse struct {
	Receipt core.ReceiptData `json:"receipt"`
}

// AnalyzerServer is the server side of the ReceiptAnalyzer service.
type AnalyzerServer interface {
	Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AnalyzerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "conti/receipt/v1/receipt",
}

func RegisterAnalyzerServer(s grpc.ServiceRegistrar, srv AnalyzerServer) {
	s.RegisterService(&serviceDesc, srv)
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AnalyzeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyzerServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: analyzeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalyzerServer).Analyze(ctx, req.(*AnalyzeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// analyzerService adapts an Analyzer to the generated-style server interface.
type analyzerService struct {
	analyzer Analyzer
}

func (s analyzerService) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	data, err := s.analyzer.Analyze(ctx, req.Image)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AnalyzeResponse{Receipt: data}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrInvalidImage):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
