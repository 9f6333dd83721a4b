package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
)

type Server struct {
	log     *slog.Logger
	cfg     Config
	handler *Handler

	httpSrv      *http.Server
	shutdownOnce sync.Once
}

func New(log *slog.Logger, cfg Config) (*Server, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h, err := NewHandler(log, cfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		log:     log,
		cfg:     cfg,
		handler: h,
	}, nil
}

// Serve handles requests on listener until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	s.handler.Register(mux)

	s.httpSrv = &http.Server{Handler: mux}

	go s.handler.sessions.Start()
	defer s.handler.sessions.Stop()

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	s.log.Info("server: listening", "addr", listener.Addr().String())
	err := s.httpSrv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) shutdown() {
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if s.httpSrv != nil {
			_ = s.httpSrv.Shutdown(ctx)
		}
	})
}
