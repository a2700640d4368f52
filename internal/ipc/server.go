package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

// DefaultReadTimeout bounds how long a connected peer may take to send its
// request line before the server gives up on it.
const DefaultReadTimeout = 5 * time.Second

// Handler answers one decoded request.
type Handler func(ctx context.Context, req Request) Response

// Server owns the listening endpoint. It is not safe for concurrent use; the
// daemon drives it from a single loop.
type Server struct {
	path        string
	ln          *net.UnixListener
	logger      *zap.Logger
	readTimeout time.Duration
}

// Listen binds the endpoint at path. A leftover file that no daemon answers
// on is removed first; a live daemon yields ErrInUse.
func Listen(path string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := os.Lstat(path); err == nil {
		if Reachable(context.Background(), path) {
			return nil, ErrInUse
		}
		logger.Debug("removing stale socket", zap.String("path", path))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on socket: %w", err)
	}
	ln.SetUnlinkOnClose(true)

	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to restrict socket permissions: %w", err)
	}

	return &Server{
		path:        path,
		ln:          ln,
		logger:      logger,
		readTimeout: DefaultReadTimeout,
	}, nil
}

// Path returns the endpoint path
func (s *Server) Path() string {
	return s.path
}

// Accept waits at most wait for a connection. It returns (nil, nil) when
// none arrived, so the caller's loop can get on with its other checks.
// Connections from other users are closed and reported as none.
func (s *Server) Accept(wait time.Duration) (*net.UnixConn, error) {
	if wait <= 0 {
		wait = time.Millisecond
	}
	if err := s.ln.SetDeadline(time.Now().Add(wait)); err != nil {
		return nil, fmt.Errorf("failed to set accept deadline: %w", err)
	}

	conn, err := s.ln.AcceptUnix()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("accept failed: %w", err)
	}

	if err := checkPeer(conn); err != nil {
		s.logger.Warn("rejected connection", zap.Error(err))
		conn.Close()
		return nil, nil
	}
	return conn, nil
}

// Serve reads one request from conn, answers it and closes conn. Read and
// parse failures are answered with a failed Response.
func (s *Server) Serve(ctx context.Context, conn net.Conn, handler Handler) error {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	var resp Response
	line, err := readLine(conn)
	switch {
	case err != nil:
		resp = Fail(err.Error())
	default:
		req, decodeErr := DecodeRequest(line)
		if decodeErr != nil {
			resp = Fail(decodeErr.Error())
		} else {
			resp = handler(ctx, req)
		}
	}

	data, err := encodeLine(resp)
	if err != nil {
		data, _ = encodeLine(Fail("failed to encode response"))
	}

	_ = conn.SetWriteDeadline(time.Now().Add(s.readTimeout))
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Close stops listening and removes the endpoint file.
func (s *Server) Close() error {
	err := s.ln.Close()
	if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}

// readLine reads up to the framing newline. A peer that closes after a
// partial line still has that line parsed.
func readLine(r io.Reader) ([]byte, error) {
	reader := bufio.NewReader(io.LimitReader(r, maxLineBytes))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return line, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: connection closed before a full message", ErrTransport)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return line, nil
}
