package receipt

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"conti/internal/core"
)

// Client calls a remote ReceiptAnalyzer. It implements Analyzer.
type Client struct {
	conn  *grpc.ClientConn
	token string
}

var _ Analyzer = (*Client)(nil)

// Dial connects to addr over plaintext unless opts override the transport.
func Dial(addr, token string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial receipt analyzer %s: %w", addr, err)
	}
	return &Client{conn: conn, token: token}, nil
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", c.token)
}

func (c *Client) Analyze(ctx context.Context, imageBase64 string) (core.ReceiptData, error) {
	var out AnalyzeResponse
	err := c.conn.Invoke(c.outgoing(ctx), analyzeMethod, &AnalyzeRequest{Image: imageBase64}, &out,
		grpc.CallContentSubtype(codecName))
	if err != nil {
		return core.ReceiptData{}, fromStatus(err)
	}
	return out.Receipt, nil
}

// Ping asks the health service whether the analyzer is serving.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		return fmt.Errorf("receipt analyzer health: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("receipt analyzer is %s", resp.GetStatus())
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidImage, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	default:
		return fmt.Errorf("analyze receipt: %w", err)
	}
}
