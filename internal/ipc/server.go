package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vidconv/internal/api"
	"vidconv/internal/daemon"
	"vidconv/internal/engine"
	"vidconv/internal/ingest"
	"vidconv/internal/logging"
	"vidconv/internal/preset"
	"vidconv/internal/queue"
	"vidconv/internal/services"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logging.NewComponentLogger(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) engine() *engine.Engine {
	return s.daemon.Engine()
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx).Payload()
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	if len(req.Paths) == 0 {
		return errors.New("at least one path is required")
	}
	opts, err := submitOptions(req.Resolution, req.Quality)
	if err != nil {
		return errors.New(services.Describe(err))
	}
	resp.Jobs = make([]Job, 0, len(req.Paths))
	for _, path := range req.Paths {
		trimmed := strings.TrimSpace(path)
		job, err := s.engine().Submit(s.ctx, ingest.FromPath(trimmed), filepath.Base(trimmed), opts)
		if err != nil {
			s.logger.Info("submit rejected",
				logging.String("path", trimmed),
				logging.String("reason", services.Describe(err)))
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %s", trimmed, services.Describe(err)))
			continue
		}
		resp.Jobs = append(resp.Jobs, api.FromJob(job))
	}
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	filter := make(map[queue.Status]bool, len(req.Statuses))
	for _, value := range req.Statuses {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return fmt.Errorf("unknown status %q", value)
		}
		filter[status] = true
	}
	jobs := s.engine().List()
	resp.Items = make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if len(filter) > 0 && !filter[job.Status] {
			continue
		}
		resp.Items = append(resp.Items, api.FromJob(job))
	}
	return nil
}

func (s *service) Describe(req DescribeRequest, resp *DescribeResponse) error {
	job, ok := s.engine().Get(strings.TrimSpace(req.ID))
	if !ok {
		resp.Found = false
		return nil
	}
	resp.Found = true
	resp.Item = api.FromJob(job)
	return nil
}

func (s *service) Retry(req RetryRequest, resp *RetryResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("at least one job id is required")
	}
	result, err := api.RetryJobsByID(s.ctx, s.engine(), req.IDs)
	if err != nil {
		return err
	}
	*resp = result
	return nil
}

func (s *service) Remove(req RemoveRequest, resp *RemoveResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("at least one job id is required")
	}
	result, err := api.RemoveJobsByID(s.ctx, s.engine(), req.IDs)
	if err != nil {
		return err
	}
	*resp = result
	return nil
}

func (s *service) Capacity(_ CapacityRequest, resp *CapacityResponse) error {
	*resp = api.FromCapacity(s.engine().Capacity())
	return nil
}

func (s *service) Settings(_ SettingsRequest, resp *SettingsResponse) error {
	*resp = api.FromSettings(s.engine().Settings())
	return nil
}

func (s *service) UpdateSettings(req UpdateSettingsRequest, resp *SettingsResponse) error {
	current, err := s.engine().UpdateSettings(req.Resolution, req.Quality)
	if err != nil {
		return errors.New(services.Describe(err))
	}
	s.logger.Info("settings updated",
		logging.String("resolution", string(current.Resolution)),
		logging.String("quality", string(current.Quality)))
	*resp = api.FromSettings(current)
	return nil
}

func submitOptions(resolution, quality string) (engine.SubmitOptions, error) {
	var opts engine.SubmitOptions
	if strings.TrimSpace(resolution) != "" {
		res, err := preset.ParseResolution(resolution)
		if err != nil {
			return opts, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		opts.Resolution = res
	}
	if strings.TrimSpace(quality) != "" {
		q, err := preset.ParseQuality(quality)
		if err != nil {
			return opts, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		opts.Quality = q
	}
	return opts, nil
}
