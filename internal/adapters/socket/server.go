package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/corey/intake/internal/domain/inbound"
)

// Source is the slice of the application the server exposes.
// Thread safety is the implementor's responsibility.
type Source interface {
	Receive() (*inbound.Message, bool)
	OnFailure(msg *inbound.Message)
	Ack(path string) error
	Stats() StatsResult
}

// Server is the daemon that listens on a Unix socket and hands out files.
type Server struct {
	source   Source
	listener net.Listener
	sockPath string
	started  time.Time
	logger   *slog.Logger

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by source.
func NewServer(source Source, sockPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		source:     source,
		sockPath:   sockPath,
		logger:     logger.With("component", "socket"),
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first. If the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	// Handle stale socket
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		// Stale socket, remove it
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("socket listening", "path", s.sockPath)
	return nil
}

// Stop gracefully shuts down the server, closing the listener and removing the socket file.
// Idempotent, safe to call multiple times (e.g., after remote shutdown + signal).
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener == nil {
			return // never bound; the socket file may belong to another daemon
		}
		s.listener.Close()
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024) // 1MB max message

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodReceive:
		return s.handleReceive(req)
	case MethodFail:
		return s.handleFail(req)
	case MethodAck:
		return s.handleAck(req)
	case MethodHealth:
		return s.handleHealth(req)
	case MethodStats:
		return s.handleStats(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

func (s *Server) handleReceive(req Request) Response {
	msg, ok := s.source.Receive()
	if !ok {
		return Response{ID: req.ID, Result: MessageResult{}}
	}
	return Response{ID: req.ID, Result: NewMessageResult(msg)}
}

func (s *Server) handleFail(req Request) Response {
	var params FailParams
	if err := decodeParams(req.Params, &params); err != nil || params.Payload == "" {
		return Response{ID: req.ID, Error: "invalid fail params"}
	}
	s.source.OnFailure(params.Message())
	return Response{ID: req.ID, Result: struct{}{}}
}

func (s *Server) handleAck(req Request) Response {
	var params AckParams
	if err := decodeParams(req.Params, &params); err != nil || params.Path == "" {
		return Response{ID: req.ID, Error: "invalid ack params"}
	}
	if err := s.source.Ack(params.Path); err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: struct{}{}}
}

func (s *Server) handleHealth(req Request) Response {
	st := s.source.Stats()
	return Response{
		ID: req.ID,
		Result: HealthResult{
			Status:    "ok",
			Running:   st.Running,
			Directory: st.Directory,
			Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		},
	}
}

func (s *Server) handleStats(req Request) Response {
	st := s.source.Stats()
	st.UptimeSeconds = int64(time.Since(s.started).Seconds())
	return Response{ID: req.ID, Result: st}
}

// decodeParams re-marshals the generic params value into out.
func decodeParams(params interface{}, out interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", "id", resp.ID, "error", err)
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
