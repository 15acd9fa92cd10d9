package gameserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/udisondev/la2go/internal/config"
)

const (
	clientSendBufSize = 2048
	clientReadBufSize = 2048
)

// Server is the client-facing game listener: it accepts player
// connections, runs them through the protocol-version/AuthLogin
// handshake, and dispatches everything after that to Handler.
//
// Grounded on internal/login/server.go's accept-loop shape, generalized
// from Blowfish+RSA framing to the game protocol's XOR stream cipher.
type Server struct {
	cfg      config.GameServer
	handler  *Handler
	clients  *Clients
	presence PresenceNotifier

	sendPool *BytePool
	readPool *BytePool

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a game-client listener over the given client
// registry — share one with whatever drives the login-server link so a
// pushed KickPlayer resolves to the same connection this server tracks.
// repo and sessions must not be nil; broadcast may be nil (see NewHandler).
func NewServer(cfg config.GameServer, clients *Clients, repo CharacterRepository, sessions SessionValidator, presence PresenceNotifier, broadcast func(from *Client, buf []byte, n int)) *Server {
	return &Server{
		cfg:      cfg,
		clients:  clients,
		handler:  NewHandler(repo, sessions, clients, presence, broadcast),
		presence: presence,
		sendPool: NewBytePool(clientSendBufSize),
		readPool: NewBytePool(clientReadBufSize),
	}
}

// Clients returns the registry of connected, authenticated clients.
func (s *Server) Clients() *Clients { return s.clients }

// Addr returns the address the server is listening on, or nil if not
// yet started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run listens on cfg.BindAddress:cfg.Port and serves client connections
// until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts connections on a pre-built listener. Exposed separately
// so tests can serve on a random port.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	slog.Info("game listener started", "address", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return nil
			default:
				slog.Error("failed to accept client connection", "error", err)
				continue
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	c := NewClient(conn)
	defer s.dropClient(c)

	readBuf := s.readPool.Get(clientReadBufSize)
	defer s.readPool.Put(readBuf)
	sendBuf := s.sendPool.Get(clientSendBufSize)
	defer s.sendPool.Put(sendBuf)

	for {
		data, err := ReadPacket(conn, c.Crypt(), readBuf)
		if err != nil {
			return
		}
		if len(data) == 0 {
			continue
		}

		n, err := s.handler.HandlePacket(ctx, c, data, sendBuf[2:])
		if err != nil {
			slog.Error("handling client packet", "err", err, "ip", c.IP())
			return
		}
		if n > 0 {
			if err := WritePacket(conn, c.Crypt(), sendBuf, n); err != nil {
				slog.Error("writing client reply", "err", err, "ip", c.IP())
				return
			}
		}
	}
}

func (s *Server) dropClient(c *Client) {
	if account := c.AccountID(); account != "" {
		s.clients.Remove(account, c)
		if s.presence != nil {
			if err := s.presence.NotifyPlayerLogout(account); err != nil {
				slog.Warn("notifying login server of player logout", "account", account, "error", err)
			}
		}
	}
	c.CloseAsync()
}
