package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/highbeam/pulseboard/internal/store"
)

// DaemonQuerier is the interface the IPC server uses to query daemon state.
// This avoids importing the daemon package (which would be circular).
type DaemonQuerier interface {
	Uptime() time.Duration
	Stop()
	// Report builds a report from the stored snapshot. The result is sent
	// to the client as JSON.
	Report(args map[string]string) (interface{}, error)
	Refresh() (*RefreshData, error)
}

// StoreQuerier provides data access methods needed by the IPC server.
type StoreQuerier interface {
	Counts() (store.Counts, error)
	LastImport() (*store.ImportRun, error)
	DBSizeBytes() (int64, error)
}

// Server is a Unix domain socket server for CLI-to-daemon communication.
type Server struct {
	daemon      DaemonQuerier
	store       StoreQuerier
	snapshotDir string
	log         logrus.FieldLogger

	listener net.Listener
	mu       sync.Mutex
	wg       sync.WaitGroup
	stopped  bool
}

// NewServer creates a new IPC server.
func NewServer(daemon DaemonQuerier, store StoreQuerier, snapshotDir string, log logrus.FieldLogger) *Server {
	return &Server{
		daemon:      daemon,
		store:       store,
		snapshotDir: snapshotDir,
		log:         log,
	}
}

// Listen starts accepting connections on the given Unix socket path.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Listen(ctx context.Context, socketPath string) error {
	// Remove stale socket file if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", socketPath, err)
	}

	// Set socket permissions to owner-only.
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.stopped = false
	s.mu.Unlock()

	s.log.WithField("socket", socketPath).Info("IPC server listening")

	// Close the listener when context is cancelled.
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Stop stops accepting connections and waits for in-flight connections to drain.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.stopped = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("drain timeout: connections still open after 5s")
	}
}

// SetDaemon sets the daemon reference. This is called after daemon creation
// to break the circular construction dependency (daemon needs server, server needs daemon).
func (s *Server) SetDaemon(d DaemonQuerier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daemon = d
}

// SetStore sets the store once the daemon has opened it.
func (s *Server) SetStore(st StoreQuerier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = st
}

func (s *Server) getStore() StoreQuerier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

func (s *Server) getDaemon() DaemonQuerier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.daemon
}

// handleConn reads a single JSON request, dispatches it, and writes the response.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		writeError(conn, "empty request")
		return
	}

	var req Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		writeError(conn, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	s.log.WithField("command", req.Command).Debug("IPC request")
	d := s.getDaemon()

	switch req.Command {
	case CmdPing:
		writeResponse(conn, Response{OK: true, Data: "pong"})

	case CmdStatus:
		s.handleStatus(conn, d)

	case CmdReport:
		if d == nil {
			writeError(conn, "daemon not ready")
			return
		}
		rep, err := d.Report(req.Args)
		if err != nil {
			writeError(conn, err.Error())
			return
		}
		writeResponse(conn, Response{OK: true, Data: rep})

	case CmdRefresh:
		if d == nil {
			writeError(conn, "daemon not ready")
			return
		}
		data, err := d.Refresh()
		if err != nil {
			writeError(conn, err.Error())
			return
		}
		writeResponse(conn, Response{OK: true, Data: data})

	case CmdStop:
		writeResponse(conn, Response{OK: true, Data: "shutting down"})
		// Trigger daemon shutdown after sending response.
		if d != nil {
			d.Stop()
		}

	default:
		writeError(conn, fmt.Sprintf("unknown command: %q", req.Command))
	}
}

func (s *Server) handleStatus(conn net.Conn, d DaemonQuerier) {
	data := StatusData{
		SnapshotDir: s.snapshotDir,
	}

	if d != nil {
		data.Uptime = d.Uptime().Truncate(time.Second).String()
	}

	if st := s.getStore(); st != nil {
		if v, err := st.DBSizeBytes(); err == nil {
			data.DBSizeBytes = v
		}
		if c, err := st.Counts(); err == nil {
			data.Projects = c.Projects
			data.Tasks = c.Tasks
			data.Assignments = c.Assignments
			data.Employees = c.Employees
			data.Teams = c.Teams
			data.Activity = c.Activity
		}
		if run, err := st.LastImport(); err == nil && run != nil {
			data.LastImportID = run.ID
			data.LastImportSource = run.Source
			data.LastImportAt = run.ImportedAt.Format(time.RFC3339)
		}
	}

	writeResponse(conn, Response{OK: true, Data: data})
}

func writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(Response{OK: false, Error: fmt.Sprintf("marshal response: %v", err)})
	}
	data = append(data, '\n')
	_, _ = conn.Write(data)
}

func writeError(conn net.Conn, msg string) {
	writeResponse(conn, Response{OK: false, Error: msg})
}
