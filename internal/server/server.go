package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/itsu-games/itsu/internal/logging"
)

// New creates a server listening on the given port.
func New(port string) (*Server, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("listen on :%s: %w", port, err)
	}

	return &Server{listener: listener}, nil
}

type Server struct {
	listener net.Listener
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// ServeHTTP serves the handler until the context is cancelled, then shuts
// down gracefully.
func (s *Server) ServeHTTP(ctx context.Context, srv *http.Server) error {
	logger := logging.FromContext(ctx)

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()

		logger.Debugf("server.Serve: shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		errCh <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
