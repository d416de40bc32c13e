package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, srv *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() { srv.GRPC().Stop() })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func checkStatus(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.Status
}

func TestHealth_ServingLifecycle(t *testing.T) {
	srv := NewServer(discardLogger(), time.Second)
	c := startServer(t, srv)

	if got := checkStatus(t, c, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("initial status = %v", got)
	}
	srv.SetServing(true)
	if got := checkStatus(t, c, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status after SetServing = %v", got)
	}
	srv.SetServing(false)
	if got := checkStatus(t, c, ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status after SetServing(false) = %v", got)
	}
}

func TestHealth_UnknownService(t *testing.T) {
	srv := NewServer(discardLogger(), time.Second)
	c := startServer(t, srv)

	_, err := c.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "nope"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %v, want NotFound", status.Code(err))
	}
}

func TestWatchReadiness(t *testing.T) {
	srv := NewServer(discardLogger(), time.Second)
	c := startServer(t, srv)

	ready := make(chan error, 1)
	ready <- nil
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		srv.WatchReadiness(ctx, 10*time.Millisecond, func(context.Context) error {
			select {
			case err := <-ready:
				return err
			default:
				return errors.New("db unreachable")
			}
		})
		close(done)
	}()

	// First probe succeeds, later ones fail.
	deadline := time.Now().Add(2 * time.Second)
	sawServing := false
	for time.Now().Before(deadline) {
		st := checkStatus(t, c, ServiceName)
		if st == healthpb.HealthCheckResponse_SERVING {
			sawServing = true
		}
		if sawServing && st == healthpb.HealthCheckResponse_NOT_SERVING {
			cancel()
			<-done
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("status never went SERVING then NOT_SERVING (sawServing=%v)", sawServing)
}

func TestDefaultRequestTimeoutInterceptor(t *testing.T) {
	icpt := defaultRequestTimeoutInterceptor(50 * time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Method"}

	_, err := icpt(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		dl, ok := ctx.Deadline()
		if !ok {
			t.Fatalf("no deadline applied")
		}
		if time.Until(dl) > 50*time.Millisecond {
			t.Fatalf("deadline too far: %v", time.Until(dl))
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := parent.Deadline()
	_, _ = icpt(parent, nil, info, func(ctx context.Context, _ any) (any, error) {
		if got, _ := ctx.Deadline(); !got.Equal(want) {
			t.Fatalf("existing deadline replaced")
		}
		return nil, nil
	})
}

func TestRecoveryInterceptor(t *testing.T) {
	icpt := recoveryInterceptor(discardLogger())
	_, err := icpt(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/test/Panic"}, func(context.Context, any) (any, error) {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("code = %v, want Internal", status.Code(err))
	}
}

func TestShutdown_StopsServer(t *testing.T) {
	srv := NewServer(discardLogger(), time.Second)
	lis := bufconn.Listen(1 << 20)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(lis) }()

	srv.SetServing(true)
	srv.Shutdown(time.Second)

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop")
	}
}
