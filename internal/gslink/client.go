package gslink

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/udisondev/la2go/internal/config"
	"github.com/udisondev/la2go/internal/constants"
	"github.com/udisondev/la2go/internal/crypto"
	"github.com/udisondev/la2go/internal/gameserver"
	"github.com/udisondev/la2go/internal/gslistener"
	"github.com/udisondev/la2go/internal/login"
)

const linkBufSize = 4096

// Client is this game server's half of the link to the login server: it
// dials out, registers itself, and keeps PlayerInGame/PlayerLogout/
// PlayerAuthRequest/ServerStatus flowing one way while answering
// KickPlayer/RequestCharacters pushed the other way.
//
// Grounded on internal/gslistener's GSConnection/Handler, mirrored to the
// dial-out side of the same wire protocol.
type Client struct {
	cfg   config.GameServer
	auth  AuthParams
	repo  gameserver.CharacterRepository
	local *gameserver.Clients

	conn   net.Conn
	cipher *crypto.BlowfishCipher

	writeMu sync.Mutex
	sendBuf []byte

	mu      sync.Mutex
	pending map[string]chan bool // account -> PlayerAuthRequest waiter
}

// Dial connects to cfg.LoginHost:cfg.LoginPort and runs the
// BlowFishKey/GameServerAuth handshake. repo answers RequestCharacters
// pushed from the login side; local is consulted for KickPlayer.
func Dial(ctx context.Context, cfg config.GameServer, auth AuthParams, repo gameserver.CharacterRepository, local *gameserver.Clients) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.LoginHost, cfg.LoginPort)
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing login server at %s: %w", addr, err)
	}

	initCipher, err := crypto.NewBlowfishCipher(crypto.DefaultGSBlowfishKey)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating initial Blowfish cipher: %w", err)
	}

	c := &Client{
		cfg:     cfg,
		auth:    auth,
		repo:    repo,
		local:   local,
		conn:    conn,
		cipher:  initCipher,
		sendBuf: make([]byte, linkBufSize),
		pending: make(map[string]chan bool),
	}

	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}

	return c, nil
}

func (c *Client) handshake() error {
	readBuf := make([]byte, linkBufSize)

	data, err := gslistener.ReadPacket(c.conn, c.cipher, readBuf)
	if err != nil {
		return fmt.Errorf("reading InitLS: %w", err)
	}
	init, err := parseInitLS(data[1:])
	if err != nil {
		return fmt.Errorf("parsing InitLS: %w", err)
	}

	blowfishKey := make([]byte, 40)
	if _, err := rand.Read(blowfishKey); err != nil {
		return fmt.Errorf("generating Blowfish key: %w", err)
	}
	encryptedKey, err := crypto.RSAEncryptNoPadding(init.RSAModulus, constants.RSAPublicExponent, blowfishKey)
	if err != nil {
		return fmt.Errorf("RSA-encrypting Blowfish key: %w", err)
	}

	n := buildBlowFishKey(c.sendBuf[constants.PacketHeaderSize:], encryptedKey)
	if err := gslistener.WritePacket(c.conn, c.cipher, c.sendBuf, n); err != nil {
		return fmt.Errorf("sending BlowFishKey: %w", err)
	}

	newCipher, err := crypto.NewBlowfishCipher(blowfishKey)
	if err != nil {
		return fmt.Errorf("creating negotiated Blowfish cipher: %w", err)
	}
	c.cipher = newCipher

	n = buildGameServerAuth(c.sendBuf[constants.PacketHeaderSize:], c.auth)
	if err := gslistener.WritePacket(c.conn, c.cipher, c.sendBuf, n); err != nil {
		return fmt.Errorf("sending GameServerAuth: %w", err)
	}

	data, err = gslistener.ReadPacket(c.conn, c.cipher, readBuf)
	if err != nil {
		return fmt.Errorf("reading registration reply: %w", err)
	}
	switch data[0] {
	case opcodeAuthResponse:
		resp, err := parseAuthResponse(data[1:])
		if err != nil {
			return fmt.Errorf("parsing AuthResponse: %w", err)
		}
		slog.Info("registered with login server", "serverId", resp.ServerID, "serverName", resp.ServerName)
		return nil
	case opcodeLoginServerFail:
		reason, err := parseLoginServerFail(data[1:])
		if err != nil {
			return fmt.Errorf("parsing LoginServerFail: %w", err)
		}
		return fmt.Errorf("login server rejected registration: reason %d", reason)
	default:
		return fmt.Errorf("unexpected opcode 0x%02x during registration", data[0])
	}
}

// Run reads the link connection until ctx is done or the connection
// drops, dispatching KickPlayer/RequestCharacters/PlayerAuthResponse.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	readBuf := make([]byte, linkBufSize)
	for {
		data, err := gslistener.ReadPacket(c.conn, c.cipher, readBuf)
		if err != nil {
			return fmt.Errorf("link connection closed: %w", err)
		}
		if len(data) == 0 {
			continue
		}
		if err := c.dispatch(data); err != nil {
			slog.Error("handling link packet", "error", err)
		}
	}
}

func (c *Client) dispatch(data []byte) error {
	switch data[0] {
	case opcodePlayerAuthResponse:
		resp, err := parsePlayerAuthResponse(data[1:])
		if err != nil {
			return fmt.Errorf("parsing PlayerAuthResponse: %w", err)
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.Account]
		if ok {
			delete(c.pending, resp.Account)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp.Success
		}
		return nil

	case opcodeKickPlayer:
		account, err := parseKickPlayer(data[1:])
		if err != nil {
			return fmt.Errorf("parsing KickPlayer: %w", err)
		}
		if cl, ok := c.local.Get(account); ok {
			cl.CloseAsync()
		}
		return nil

	case opcodeRequestCharacters:
		account, err := parseRequestCharacters(data[1:])
		if err != nil {
			return fmt.Errorf("parsing RequestCharacters: %w", err)
		}
		return c.replyCharacters(account)

	default:
		return fmt.Errorf("unexpected link opcode 0x%02x", data[0])
	}
}

func (c *Client) replyCharacters(account string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	characters, err := c.repo.ListCharacters(ctx, account)
	if err != nil {
		return fmt.Errorf("listing characters for %q: %w", account, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	n := buildReplyCharacters(c.sendBuf[constants.PacketHeaderSize:], account, characters)
	return gslistener.WritePacket(c.conn, c.cipher, c.sendBuf, n)
}

// NotifyPlayerInGame tells the login server accounts just entered the
// world on this server (PlayerInGame, 0x02).
func (c *Client) NotifyPlayerInGame(accounts []string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	n := buildPlayerInGame(c.sendBuf[constants.PacketHeaderSize:], accounts)
	return gslistener.WritePacket(c.conn, c.cipher, c.sendBuf, n)
}

// NotifyPlayerLogout tells the login server account left this server
// (PlayerLogout, 0x03).
func (c *Client) NotifyPlayerLogout(account string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	n := buildPlayerLogout(c.sendBuf[constants.PacketHeaderSize:], account)
	return gslistener.WritePacket(c.conn, c.cipher, c.sendBuf, n)
}

// SendServerStatus pushes a ServerStatus attribute update (0x06).
func (c *Client) SendServerStatus(attrs []ServerStatusAttr) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	n := buildServerStatus(c.sendBuf[constants.PacketHeaderSize:], attrs)
	return gslistener.WritePacket(c.conn, c.cipher, c.sendBuf, n)
}

// ValidatePlayer implements gameserver.SessionValidator: it sends
// PlayerAuthRequest and blocks until the correlated PlayerAuthResponse
// arrives or ctx is done.
func (c *Client) ValidatePlayer(ctx context.Context, account string, playOK1, playOK2 int32) (bool, error) {
	ch := make(chan bool, 1)
	c.mu.Lock()
	c.pending[account] = ch
	c.mu.Unlock()

	key := login.SessionKey{PlayOkID1: playOK1, PlayOkID2: playOK2}

	c.writeMu.Lock()
	n := buildPlayerAuthRequest(c.sendBuf[constants.PacketHeaderSize:], account, key)
	err := gslistener.WritePacket(c.conn, c.cipher, c.sendBuf, n)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, account)
		c.mu.Unlock()
		return false, fmt.Errorf("sending PlayerAuthRequest: %w", err)
	}

	select {
	case ok := <-ch:
		return ok, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, account)
		c.mu.Unlock()
		return false, ctx.Err()
	}
}

// Close closes the underlying link connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
