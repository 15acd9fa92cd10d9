package gameserver

import (
	"net"
	"sync"

	"github.com/udisondev/la2go/internal/crypto"
)

// sendQueueSize bounds how many outgoing packets can be buffered; Send
// closes the connection instead of blocking once the queue is full.
// Grounded on the teacher's writePump sizing.
const sendQueueSize = 256

// CharacterSummary is the minimal per-character data the character-select
// screen needs. Anything beyond this (inventory, skills, world state) is
// out of scope for the link/session layer and belongs to a persistence
// package this one only depends on through an interface.
type CharacterSummary struct {
	Slot      int32
	Name      string
	Level     int32
	ClassID   int32
	Race      int32
	Sex       int32
	ObjectID  uint32
	Deleted   bool
}

// Client is one connected game client: the TCP connection, its crypto
// state, and the small amount of session data needed to get a player from
// login through character select into the world.
//
// Grounded on the teacher's internal/gameserver/client.go GameClient,
// generalized to drop its direct coupling to model.Player/character
// caching — this package only knows about CharacterSummary, supplied by
// whatever repository the caller wires in.
type Client struct {
	conn net.Conn
	ip   string

	crypt *crypto.GameCrypt

	mu         sync.RWMutex
	state      ClientConnectionState
	accountID  string
	playOK1    int32
	playOK2    int32
	characters []CharacterSummary
	selected   int32

	sendCh chan []byte
	closed chan struct{}
	once   sync.Once
}

// NewClient wraps conn as a not-yet-authenticated game client.
func NewClient(conn net.Conn) *Client {
	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	c := &Client{
		conn:   conn,
		ip:     host,
		crypt:  crypto.NewGameCrypt(),
		state:  ClientStateConnected,
		sendCh: make(chan []byte, sendQueueSize),
		closed: make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *Client) Conn() net.Conn      { return c.conn }
func (c *Client) IP() string          { return c.ip }
func (c *Client) Crypt() *crypto.GameCrypt { return c.crypt }

func (c *Client) State() ClientConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) SetState(s ClientConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Client) AccountID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

// Authenticate binds the client to an account and its SessionKey second
// pair, which PlayerAuthRequest on the link protocol must match.
func (c *Client) Authenticate(accountID string, playOK1, playOK2 int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountID = accountID
	c.playOK1 = playOK1
	c.playOK2 = playOK2
	c.state = ClientStateAuthenticated
}

func (c *Client) PlayOK() (int32, int32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playOK1, c.playOK2
}

func (c *Client) SetCharacters(list []CharacterSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.characters = list
}

func (c *Client) Characters() []CharacterSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CharacterSummary, len(c.characters))
	copy(out, c.characters)
	return out
}

func (c *Client) SelectCharacter(slot int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = slot
	c.state = ClientStateEntering
}

func (c *Client) SelectedSlot() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Send enqueues data for the write pump. Non-blocking: a full queue drops
// the connection rather than let one slow client back-pressure the
// accept/read loop, the same trade-off the teacher's writePump makes.
func (c *Client) Send(data []byte) {
	select {
	case c.sendCh <- data:
	case <-c.closed:
	default:
		c.CloseAsync()
	}
}

// writePump batches queued packets with net.Buffers (a single writev
// syscall) instead of one Write call per packet, following the teacher's
// client.go, which attributes the pattern to Leaf/Zinx/Gorilla-chat/L2J
// MMOCore style write pumps.
func (c *Client) writePump() {
	for {
		select {
		case <-c.closed:
			return
		case first, ok := <-c.sendCh:
			if !ok {
				return
			}
			bufs := net.Buffers{first}
			drain := true
			for drain {
				select {
				case next, ok := <-c.sendCh:
					if !ok {
						drain = false
						break
					}
					bufs = append(bufs, next)
				default:
					drain = false
				}
			}
			if _, err := bufs.WriteTo(c.conn); err != nil {
				c.CloseAsync()
				return
			}
		}
	}
}

// CloseAsync closes the connection without blocking the caller.
func (c *Client) CloseAsync() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

// Close closes the connection and waits for nothing — kept distinct from
// CloseAsync for callers that want an explicit, named shutdown path (the
// link handler calling KickPlayer, say) even though the implementation
// is currently identical.
func (c *Client) Close() {
	c.CloseAsync()
}
