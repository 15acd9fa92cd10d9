package gameserver

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"

	"github.com/udisondev/la2go/internal/gameserver/clientpackets"
	"github.com/udisondev/la2go/internal/gameserver/serverpackets"
)

// protocolRevision is the only client revision this game server accepts.
const protocolRevision = 152

// Handler dispatches client → game server packets by opcode alone; unlike
// the link handler in internal/gslistener/handler.go it does not check
// the client's connection state before dispatching.
type Handler struct {
	repo      CharacterRepository
	sessions  SessionValidator
	clients   *Clients
	presence  PresenceNotifier
	broadcast func(from *Client, buf []byte, n int)
}

// NewHandler creates a packet handler. broadcast may be nil, in which
// case MoveToLocation updates the character's position without notifying
// anyone else -- acceptable for a single-client smoke test, not for a
// live world. buf is the caller's own reply buffer and gets reused for
// the sender's own ack right after broadcast returns, so the hook must
// copy buf[:n] before handing it to each recipient's own cipher/queue.
func NewHandler(repo CharacterRepository, sessions SessionValidator, clients *Clients, presence PresenceNotifier, broadcast func(from *Client, buf []byte, n int)) *Handler {
	return &Handler{
		repo:      repo,
		sessions:  sessions,
		clients:   clients,
		presence:  presence,
		broadcast: broadcast,
	}
}

// HandlePacket dispatches one opcoded client packet. Writes the reply
// into buf and returns the number of bytes written (0 = nothing to
// send). The caller is expected to close the connection on error.
func (h *Handler) HandlePacket(ctx context.Context, c *Client, data, buf []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty packet")
	}

	opcode := data[0]
	body := data[1:]

	switch opcode {
	case clientpackets.OpcodeProtocolVersion:
		return h.handleProtocolVersion(c, body, buf)
	case clientpackets.OpcodeAuthLogin:
		return h.handleAuthLogin(ctx, c, body, buf)
	case clientpackets.OpcodeCharacterCreate:
		return h.handleCharacterCreate(ctx, c, body, buf)
	case clientpackets.OpcodeCharacterDelete:
		return h.handleCharacterDelete(ctx, c, body, buf)
	case clientpackets.OpcodeCharacterSelect:
		return h.handleCharacterSelect(ctx, c, body, buf)
	case clientpackets.OpcodeMoveToLocation:
		return h.handleMoveToLocation(ctx, c, body, buf)
	case clientpackets.OpcodeSendClientIni, clientpackets.OpcodeRequestUserBanInfo:
		slog.Debug("no-op opcode", "opcode", fmt.Sprintf("0x%02x", opcode), "ip", c.IP())
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown opcode 0x%02x", opcode)
	}
}

// handleProtocolVersion answers the client's first packet: generate a
// fresh stream-cipher key, arm the client's GameCrypt with it, and send
// ProtocolResponse.
func (h *Handler) handleProtocolVersion(c *Client, body, buf []byte) (int, error) {
	var pkt clientpackets.ProtocolVersion
	if err := pkt.Parse(body); err != nil {
		return 0, fmt.Errorf("parsing ProtocolVersion: %w", err)
	}

	key := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		return 0, fmt.Errorf("generating game crypt key: %w", err)
	}

	ok := pkt.Version == protocolRevision
	if ok {
		c.Crypt().SetKey(key)
	}

	n := serverpackets.ProtocolResponse(buf, ok, key)
	slog.Info("protocol version negotiated", "ip", c.IP(), "version", pkt.Version, "ok", ok)
	return n, nil
}

func (h *Handler) handleAuthLogin(ctx context.Context, c *Client, body, buf []byte) (int, error) {
	var pkt clientpackets.AuthLogin
	if err := pkt.Parse(body); err != nil {
		return 0, fmt.Errorf("parsing AuthLogin: %w", err)
	}

	valid, err := h.sessions.ValidatePlayer(ctx, pkt.Account, pkt.PlayOK1, pkt.PlayOK2)
	if err != nil {
		return 0, fmt.Errorf("validating session for %q: %w", pkt.Account, err)
	}
	if !valid {
		slog.Warn("rejected AuthLogin: invalid session", "account", pkt.Account, "ip", c.IP())
		return 0, fmt.Errorf("invalid session for %q", pkt.Account)
	}

	if prev, had := h.clients.Add(pkt.Account, c); had {
		slog.Info("kicking previous connection for account", "account", pkt.Account)
		prev.CloseAsync()
	}
	c.Authenticate(pkt.Account, pkt.PlayOK1, pkt.PlayOK2)

	if h.presence != nil {
		if err := h.presence.NotifyPlayerInGame([]string{pkt.Account}); err != nil {
			slog.Warn("notifying login server of player in game", "account", pkt.Account, "error", err)
		}
	}

	characters, err := h.repo.ListCharacters(ctx, pkt.Account)
	if err != nil {
		return 0, fmt.Errorf("listing characters for %q: %w", pkt.Account, err)
	}
	c.SetCharacters(characters)

	n := serverpackets.CharacterSelectionInfo(buf, characters)
	slog.Info("account authenticated", "account", pkt.Account, "characters", len(characters), "ip", c.IP())
	return n, nil
}

func (h *Handler) handleCharacterCreate(ctx context.Context, c *Client, body, buf []byte) (int, error) {
	var pkt clientpackets.CharacterCreate
	if err := pkt.Parse(body); err != nil {
		return 0, fmt.Errorf("parsing CharacterCreate: %w", err)
	}

	account := c.AccountID()
	if account == "" {
		return 0, fmt.Errorf("CharacterCreate before AuthLogin")
	}

	if !ValidCharacterName(pkt.Name) {
		n := serverpackets.CharacterCreateResult(buf, serverpackets.CreateReasonNameInvalid)
		return n, nil
	}

	existing := c.Characters()
	if len(existing) >= MaxCharacterSlots {
		n := serverpackets.CharacterCreateResult(buf, serverpackets.CreateReasonTooManySlots)
		return n, nil
	}

	taken, err := h.repo.NameTaken(ctx, pkt.Name)
	if err != nil {
		return 0, fmt.Errorf("checking name %q: %w", pkt.Name, err)
	}
	if taken {
		n := serverpackets.CharacterCreateResult(buf, serverpackets.CreateReasonNameTaken)
		return n, nil
	}

	slot := nextFreeSlot(existing)
	summary := CharacterSummary{
		Slot:    slot,
		Name:    pkt.Name,
		Level:   1,
		ClassID: pkt.ClassID,
		Race:    pkt.Race,
		Sex:     pkt.Sex,
	}
	objectID, err := h.repo.CreateCharacter(ctx, account, slot, summary)
	if err != nil {
		return 0, fmt.Errorf("creating character %q for %q: %w", pkt.Name, account, err)
	}
	summary.ObjectID = objectID
	c.SetCharacters(append(existing, summary))

	n := serverpackets.CharacterCreateResult(buf, serverpackets.CreateReasonOK)
	slog.Info("character created", "account", account, "name", pkt.Name, "slot", slot, "objectId", objectID)
	return n, nil
}

func nextFreeSlot(existing []CharacterSummary) int32 {
	used := make(map[int32]struct{}, len(existing))
	for _, c := range existing {
		used[c.Slot] = struct{}{}
	}
	for slot := int32(0); slot < MaxCharacterSlots; slot++ {
		if _, ok := used[slot]; !ok {
			return slot
		}
	}
	return int32(len(existing))
}

func (h *Handler) handleCharacterDelete(ctx context.Context, c *Client, body, buf []byte) (int, error) {
	var pkt clientpackets.CharacterDelete
	if err := pkt.Parse(body); err != nil {
		return 0, fmt.Errorf("parsing CharacterDelete: %w", err)
	}

	account := c.AccountID()
	if account == "" {
		return 0, fmt.Errorf("CharacterDelete before AuthLogin")
	}

	if err := h.repo.SoftDeleteCharacter(ctx, account, pkt.Slot); err != nil {
		n := serverpackets.CharacterDeleteResult(buf, serverpackets.DeleteReasonNoSlot)
		slog.Warn("character delete failed", "account", account, "slot", pkt.Slot, "error", err)
		return n, nil
	}

	remaining := make([]CharacterSummary, 0, len(c.Characters()))
	for _, ch := range c.Characters() {
		if ch.Slot != pkt.Slot {
			remaining = append(remaining, ch)
		}
	}
	c.SetCharacters(remaining)

	n := serverpackets.CharacterDeleteResult(buf, serverpackets.DeleteReasonOK)
	slog.Info("character deleted", "account", account, "slot", pkt.Slot)
	return n, nil
}

func (h *Handler) handleCharacterSelect(_ context.Context, c *Client, body, buf []byte) (int, error) {
	var pkt clientpackets.CharacterSelect
	if err := pkt.Parse(body); err != nil {
		return 0, fmt.Errorf("parsing CharacterSelect: %w", err)
	}

	var selected *CharacterSummary
	for _, ch := range c.Characters() {
		if ch.Slot == pkt.Slot {
			ch := ch
			selected = &ch
			break
		}
	}
	if selected == nil {
		return 0, fmt.Errorf("select unknown slot %d", pkt.Slot)
	}

	c.SelectCharacter(pkt.Slot)
	c.SetState(ClientStateInGame)

	n := serverpackets.CharacterSelected(buf, selected.ObjectID, selected.Name)
	slog.Info("character selected", "account", c.AccountID(), "name", selected.Name, "objectId", selected.ObjectID)
	return n, nil
}

func (h *Handler) handleMoveToLocation(_ context.Context, c *Client, body, buf []byte) (int, error) {
	var pkt clientpackets.MoveToLocation
	if err := pkt.Parse(body); err != nil {
		return 0, fmt.Errorf("parsing MoveToLocation: %w", err)
	}

	selected := c.SelectedSlot()
	var objectID uint32
	for _, ch := range c.Characters() {
		if ch.Slot == selected {
			objectID = ch.ObjectID
			break
		}
	}

	n := serverpackets.CharMoveToLocation(buf, objectID, pkt.X, pkt.Y, pkt.Z, pkt.OriginX, pkt.OriginY, pkt.OriginZ)
	if h.broadcast != nil {
		h.broadcast(c, buf, n)
	}

	// The client that issued the move also expects to see its own
	// confirmation; HandlePacket's single reply slot covers that case.
	return n, nil
}
