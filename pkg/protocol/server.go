package protocol

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenworks/facet/pkg/state"
)

// Server answers coordination requests over TCP. A connection carries one
// request, one response, and one acknowledgment; any error or timeout
// aborts that connection only, and the listener keeps accepting.
type Server struct {
	addr           string
	store          *state.Store
	log            *zap.SugaredLogger
	requestTimeout time.Duration
	ackTimeout     time.Duration

	// now is swapped by tests to pin the lock timestamp.
	now func() time.Time

	mu       sync.Mutex
	listener net.Listener
	running  bool
	wg       sync.WaitGroup
}

// NewServer builds a server bound to the given store.
func NewServer(addr string, store *state.Store, requestTimeout, ackTimeout time.Duration, log *zap.SugaredLogger) *Server {
	return &Server{
		addr:           addr,
		store:          store,
		log:            log,
		requestTimeout: requestTimeout,
		ackTimeout:     ackTimeout,
		now:            time.Now,
	}
}

// Start opens the listener and begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.running = true
	s.log.Infow("server listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop(listener)
	return nil
}

// Stop closes the listener and waits for in-flight connections.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	err := listener.Close()
	s.wg.Wait()
	return err
}

// Addr returns the bound listener address, useful when started on :0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if running {
				s.log.Warnw("accept failed", "error", err)
				continue
			}
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn runs one request/response/ack exchange. Every failure path
// just closes this connection.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()[:8]
	s.log.Debugw("client connected", "conn", connID, "peer", conn.RemoteAddr().String())

	// I/O deadlines run against the wall clock; s.now only stamps locks.
	if err := conn.SetReadDeadline(time.Now().Add(s.requestTimeout)); err != nil {
		return
	}
	request, err := ReadFrame(bufio.NewReader(conn))
	if err != nil {
		s.log.Warnw("request read failed", "conn", connID, "error", err)
		return
	}
	if len(request) == 0 {
		return
	}

	var response []byte
	switch string(request) {
	case RequestGetAnimation:
		response, err = s.encodeSnapshot()
		if err != nil {
			s.log.Errorw("snapshot encode failed", "conn", connID, "error", err)
			return
		}
	case RequestLockAnimation:
		s.store.Update(state.KeyLastLocked, s.now().Unix())
		s.log.Infow("animation locked", "conn", connID)
		response = []byte(ResponseLocked)
	default:
		s.log.Warnw("unknown request", "conn", connID, "request", string(request))
		response = []byte(ResponseUnknown)
	}

	if err := WriteFrame(conn, response); err != nil {
		s.log.Warnw("response write failed", "conn", connID, "error", err)
		return
	}

	if err := readAck(conn, s.ackTimeout); err != nil {
		s.log.Warnw("client ack missing", "conn", connID, "error", err)
	}
}

// encodeSnapshot serializes the live state map without the deep-copy cost.
func (s *Server) encodeSnapshot() ([]byte, error) {
	return s.store.SnapshotJSON()
}
