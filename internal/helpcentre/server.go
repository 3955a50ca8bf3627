package helpcentre

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/andy6609/helpcentre-queue/internal/hcq"
)

type Options struct {
	// Backlog bounds connections accepted but not yet registered.
	Backlog      int
	WriteTimeout time.Duration
}

// Server runs the help-centre protocol. A single goroutine owns the queue,
// the registry and every connection's state.
type Server struct {
	addr     string
	opts     Options
	logger   *slog.Logger
	queue    *hcq.Queue
	reg      *Registry
	listener net.Listener

	cancel context.CancelFunc
	doneCh chan struct{}
	err    error
}

func NewServer(addr string, queue *hcq.Queue, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Backlog <= 0 {
		opts.Backlog = 3
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Server{
		addr:   addr,
		opts:   opts,
		logger: logger,
		queue:  queue,
		doneCh: make(chan struct{}),
	}
}

// Start binds the listener and runs the event loop in the background.
func (s *Server) Start() error {
	lc := listenConfig()
	ln, err := lc.Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.reg = NewRegistry(ln, s.opts.Backlog, s.opts.WriteTimeout, s.logger)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.doneCh)
		s.err = s.run(ctx)
		if s.err != nil {
			s.logger.Error("event loop stopped", "error", s.err)
		}
	}()

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Done is closed when the event loop exits, either through Stop or a fatal
// error reported by Err.
func (s *Server) Done() <-chan struct{} {
	return s.doneCh
}

// Err returns the fatal error that stopped the loop. Only valid after Done.
func (s *Server) Err() error {
	return s.err
}

func (s *Server) Stop() {
	s.logger.Info("shutting down")

	if s.cancel != nil {
		s.cancel()
		<-s.doneCh
	}
	if s.reg != nil {
		if err := s.reg.Close(s.queue); err != nil {
			s.logger.Warn("close listener", "error", err)
		}
	}

	s.logger.Info("shutdown complete")
}

// run drives the event loop until ctx is cancelled or the listener fails.
// Each pass prompts every connection that is ready for its next line before
// reading from any of them, and connections are only dropped by Collect.
func (s *Server) run(ctx context.Context) error {
	for {
		s.reg.Collect(s.queue)
		for _, c := range s.reg.Connections() {
			if c.IOState() == PrepareToRead {
				s.prompt(c)
			}
		}
		// prompts may have hit broken pipes
		s.reg.Collect(s.queue)

		ready, err := s.reg.WaitReady(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		start := time.Now()

		if ready.Listener {
			if _, err := s.reg.AcceptNewConnection(); err != nil {
				return err
			}
		}

		for _, c := range s.reg.Connections() {
			if !ready.Has(c) {
				continue
			}
			if c.IOState() == AwaitingData {
				_ = c.Read()
			}
			if c.IOState() == MessageReady {
				s.dispatch(c)
			}
		}

		s.reg.Collect(s.queue)
		updateQueueGauges(s.queue)
		LoopIterationDuration.Observe(time.Since(start).Seconds())
	}
}
