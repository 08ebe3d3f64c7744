package adaptor_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ponyo877/bingo/server/adaptor"
	"github.com/ponyo877/bingo/server/domain"
)

type stubGateway struct {
	status chan string
}

func (g *stubGateway) HandleSession(context.Context, domain.Session, <-chan domain.Request, chan<- domain.Event) error {
	return errors.New("not used")
}

func (g *stubGateway) Status(context.Context) domain.ServerStatus {
	select {
	case s := <-g.status:
		return domain.ServerStatus{Status: s}
	default:
		return domain.ServerStatus{Status: "degraded"}
	}
}

func TestGRPCHealth(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	hs := health.NewServer()
	srv := adaptor.NewGRPCServer(hs)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	gateway := &stubGateway{status: make(chan string, 1)}
	gateway.status <- "ok"
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go adaptor.WatchHealth(ctx, gateway, hs, 20*time.Millisecond)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	client := healthpb.NewHealthClient(conn)

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: adaptor.HealthService})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.GetStatus()
	}

	// the first poll reports ok, every later poll reports degraded
	assert.Eventually(t, func() bool {
		return check() == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
