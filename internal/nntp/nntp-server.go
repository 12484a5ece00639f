// Package nntp implements the lord NNTP server: a pragmatic RFC 3977
// reader subset answered out of the on-disk article store, plus POST
// handled by spawning the poster subprocess.
package nntp

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"sync"

	"github.com/go-while/go-lornews/internal/config"
	"github.com/go-while/go-lornews/internal/models"
	"github.com/go-while/go-lornews/internal/spool"
)

const (
	// NNTP protocol constants
	DOT  = "."
	CR   = "\r"
	LF   = "\n"
	CRLF = CR + LF
)

// Server is the lord NNTP server.
type Server struct {
	Cfg     *config.Config
	Catalog []*models.Group
	Port    int
	PostCmd string // command spawned for POST, default "lorpost"

	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a server over a resolved store and loaded catalog.
func NewServer(cfg *config.Config, catalog []*models.Group, port int, postCmd string) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("catalog cannot be empty")
	}
	if postCmd == "" {
		postCmd = config.DefaultPostCmd
	}
	return &Server{Cfg: cfg, Catalog: catalog, Port: port, PostCmd: postCmd}, nil
}

// ListenAndServe runs the accept loop. There is no graceful shutdown: the
// loop returns only on a fatal listener error.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Port))
	if err != nil {
		return fmt.Errorf("failed to start NNTP listener on port %d: %w", s.Port, err)
	}
	s.listener = listener
	log.Printf("[NNTP] lord listening on port %d", s.Port)
	return s.serve(listener)
}

func (s *Server) serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		// The subordinate task owns the connection; the loop resumes
		// accepting immediately.
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	client := NewClientConnection(conn, s)
	if err := client.Handle(); err != nil {
		log.Printf("[NNTP] connection error from %s: %v", conn.RemoteAddr(), err)
	}
}

// findGroup resolves a group name against the catalog.
func (s *Server) findGroup(name string) *models.Group {
	return config.FindGroup(s.Catalog, name)
}

// openGroup opens a group's index read-only. A group that is in the
// catalog but was never pulled yields (nil, nil): callers treat it as
// empty (count 0, min 1, max 0).
func (s *Server) openGroup(name string) (*spool.GroupIndex, error) {
	idx, err := spool.OpenGroupIndex(s.Cfg.GroupDir(name), name, spool.ModeRead)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return idx, nil
}

// groupStatus reports (count, min, max) for a group, empty-group values
// when it was never pulled.
func (s *Server) groupStatus(name string) (count, min, max int64, err error) {
	idx, err := s.openGroup(name)
	if err != nil {
		return 0, 0, 0, err
	}
	if idx == nil {
		return 0, 1, 0, nil
	}
	defer idx.Close()
	return idx.Count, idx.Min, idx.Max, nil
}
