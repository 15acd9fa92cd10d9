package gslistener

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/la2go/internal/banlist"
	"github.com/udisondev/la2go/internal/broker"
	"github.com/udisondev/la2go/internal/crypto"
	"github.com/udisondev/la2go/internal/db"
	"github.com/udisondev/la2go/internal/gameserver"
	"github.com/udisondev/la2go/internal/gslistener/clientpackets"
	"github.com/udisondev/la2go/internal/gslistener/serverpackets"
	"github.com/udisondev/la2go/internal/login"
)

// Handler обрабатывает входящие пакеты от GameServer
type Handler struct {
	db             *db.DB
	gsTable        *gameserver.GameServerTable
	sessionManager *login.SessionManager
	onlineAccounts *login.OnlineAccountTable
	bans           *banlist.List

	broker *broker.Broker

	mu       sync.RWMutex
	byServer map[int]*GSConnection // authenticated GameServer connections, keyed by server id
}

// NewHandler создаёт новый handler для GS↔LS пакетов
func NewHandler(database *db.DB, gsTable *gameserver.GameServerTable, sessionManager *login.SessionManager) *Handler {
	return &Handler{
		db:             database,
		gsTable:        gsTable,
		sessionManager: sessionManager,
		broker:         broker.New(),
		byServer:       make(map[int]*GSConnection),
	}
}

// SetOnlineAccounts wires in the login server's table of accounts
// currently in-game, so validated PlayerAuthRequests (join) and
// PlayerLogout notifications (leave) from a GameServer keep it accurate;
// PlayerInGame does not touch it. May be left unset in tests that don't
// exercise the relogin-kick path.
func (h *Handler) SetOnlineAccounts(table *login.OnlineAccountTable) {
	h.onlineAccounts = table
}

// SetBans wires in the login server's IP ban list so RequestTempBan can
// add entries to it. May be left unset in tests that don't exercise
// that path.
func (h *Handler) SetBans(bans *banlist.List) {
	h.bans = bans
}

// RequestCharacterCount asks the given GameServer for account's character
// count, correlating the RequestCharacters/ReplyCharacters round trip
// through the broker. Returns 0 with an error if the server isn't
// connected or doesn't reply before ctx is done.
func (h *Handler) RequestCharacterCount(ctx context.Context, serverID int, account string) (int, error) {
	h.mu.RLock()
	conn, ok := h.byServer[serverID]
	h.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("server %d not connected", serverID)
	}

	key := "chars:" + account
	peerID := fmt.Sprintf("%d", serverID)

	buf := make([]byte, 512)
	n := serverpackets.RequestCharacters(buf, account)
	if err := conn.SendPacket(buf, n); err != nil {
		return 0, fmt.Errorf("sending RequestCharacters: %w", err)
	}

	val, err := h.broker.Await(ctx, peerID, key)
	if err != nil {
		return 0, fmt.Errorf("awaiting ReplyCharacters: %w", err)
	}
	count, _ := val.(int)
	return count, nil
}

// KickPlayer implements login.PlayerKicker: ask the game server hosting
// account to drop its connection. When serverID isn't currently
// connected (host unknown, or it dropped since the account joined),
// falls back to broadcasting KickPlayer to every connected game server
// so whichever one is actually still holding the session picks it up.
func (h *Handler) KickPlayer(ctx context.Context, serverID int, account string) error {
	h.mu.RLock()
	conn, ok := h.byServer[serverID]
	h.mu.RUnlock()

	if ok {
		buf := make([]byte, 512)
		n := serverpackets.KickPlayer(buf, account)
		if err := conn.SendPacket(buf, n); err != nil {
			return fmt.Errorf("sending KickPlayer to server %d: %w", serverID, err)
		}
		return nil
	}

	slog.Warn("kick target server not connected, broadcasting", "server_id", serverID, "account", account)

	h.mu.RLock()
	peerIDs := make([]string, 0, len(h.byServer))
	conns := make(map[string]*GSConnection, len(h.byServer))
	for id, c := range h.byServer {
		peerID := fmt.Sprintf("%d", id)
		peerIDs = append(peerIDs, peerID)
		conns[peerID] = c
	}
	h.mu.RUnlock()

	results := broker.Broadcast(ctx, peerIDs, func(_ context.Context, peerID string) error {
		buf := make([]byte, 512)
		n := serverpackets.KickPlayer(buf, account)
		return conns[peerID].SendPacket(buf, n)
	})

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("peer %s: %w", r.PeerID, r.Err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("broadcasting KickPlayer: %w", errors.Join(errs...))
	}
	return nil
}

func (h *Handler) registerServer(id int, conn *GSConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byServer[id] = conn
}

func (h *Handler) unregisterServer(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byServer, id)
	h.broker.Unregister(fmt.Sprintf("%d", id))
}

// HandlePacket диспетчеризирует пакет по (state, opcode) → handler function.
// Writes response into buf. Returns: n — bytes written to buf (0 = nothing to send),
// ok — true if connection stays open (false = close after sending).
func (h *Handler) HandlePacket(
	ctx context.Context,
	conn *GSConnection,
	data, buf []byte,
) (int, bool, error) {
	if len(data) == 0 {
		return 0, false, fmt.Errorf("empty packet")
	}

	opcode := data[0]
	body := data[1:]
	state := conn.State()

	switch state {
	case gameserver.GSStateConnected:
		switch opcode {
		case OpcodeGSBlowFishKey:
			return handleBlowFishKey(ctx, h, conn, body, buf)
		default:
			return 0, true, fmt.Errorf("invalid opcode 0x%02x for state CONNECTED", opcode)
		}

	case gameserver.GSStateBFConnected:
		switch opcode {
		case OpcodeGSGameServerAuth:
			return handleGameServerAuth(ctx, h, conn, body, buf)
		default:
			return 0, true, fmt.Errorf("invalid opcode 0x%02x for state BF_CONNECTED", opcode)
		}

	case gameserver.GSStateAuthed:
		switch opcode {
		case OpcodeGSPlayerInGame:
			return handlePlayerInGame(ctx, h, conn, body, buf)
		case OpcodeGSPlayerLogout:
			return handlePlayerLogout(ctx, h, conn, body, buf)
		case OpcodeGSPlayerAuthRequest:
			return handlePlayerAuthRequest(ctx, h, conn, body, buf)
		case OpcodeGSChangeAccessLevel:
			return handleChangeAccessLevel(ctx, h, conn, body, buf)
		case OpcodeGSRequestTempBan:
			return handleRequestTempBan(ctx, h, conn, body, buf)
		case OpcodeGSServerStatus:
			return handleServerStatus(ctx, h, conn, body, buf)
		case OpcodeGSPlayerTracert:
			return handlePlayerTracert(ctx, h, conn, body, buf)
		case OpcodeGSReplyCharacters:
			return handleReplyCharacters(ctx, h, conn, body, buf)
		default:
			return 0, false, fmt.Errorf("unknown opcode 0x%02x", opcode)
		}

	default:
		return 0, true, fmt.Errorf("invalid connection state: %v", state)
	}
}

// Placeholder handlers (P3.5 scope — stub implementations)
// Будут реализованы в P3.7-P3.9

func handleBlowFishKey(_ context.Context, _ *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	// Парсим пакет
	var pkt clientpackets.BlowFishKey
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing BlowFishKey packet: %w", err)
	}

	// RSA расшифровка ключа
	rsaKeyPair := conn.RSAKeyPair()
	decryptedBlock, err := crypto.RSADecryptNoPadding(rsaKeyPair.PrivateKey, pkt.EncryptedKey)
	if err != nil {
		return 0, false, fmt.Errorf("RSA decrypt failed: %w", err)
	}

	// RSA-512 расшифровывает в 64 байта, берём последние 40 байт (как в Java)
	const blowfishKeySize = 40
	if len(decryptedBlock) < blowfishKeySize {
		return 0, false, fmt.Errorf("decrypted block too short: got %d, want at least %d", len(decryptedBlock), blowfishKeySize)
	}

	// Берём последние 40 байт
	decryptedKey := decryptedBlock[len(decryptedBlock)-blowfishKeySize:]

	// Создаём новый Blowfish cipher
	newCipher, err := crypto.NewBlowfishCipher(decryptedKey)
	if err != nil {
		return 0, false, fmt.Errorf("creating new Blowfish cipher: %w", err)
	}

	// Переключаем cipher
	conn.SetBlowfishCipher(newCipher)

	// Переключаем состояние: CONNECTED → BF_CONNECTED
	conn.SetState(gameserver.GSStateBFConnected)

	slog.Info("BlowFishKey processed successfully", "ip", conn.IP(), "state", "BF_CONNECTED")

	// Не отправляем ответ, просто продолжаем
	return 0, true, nil
}

func handleGameServerAuth(_ context.Context, h *Handler, conn *GSConnection, body []byte, buf []byte) (int, bool, error) {
	// Парсим пакет
	var pkt clientpackets.GameServerAuth
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing GameServerAuth packet: %w", err)
	}

	// Реализация handleRegProcess из Java (GameServerAuth.java:86-163)
	requestedID := int(pkt.ID)

	// Проверяем, зарегистрирован ли ID в БД
	existingInfo, exists := h.gsTable.GetByID(requestedID)

	if exists {
		// ID существует — проверяем hexID
		if bytes.Equal(existingInfo.HexID(), pkt.HexID) {
			// HexID совпадает — проверяем, не подключен ли уже
			if existingInfo.IsAuthed() {
				// Уже подключен — отказываем
				slog.Warn("GameServer already authenticated", "id", requestedID, "ip", conn.IP())
				n := serverpackets.LoginServerFail(buf, gameserver.ReasonAlreadyLoggedIn)
				return n, false, nil // close connection
			}

			// HexID совпадает и не подключен — регистрируем
			return finalizeRegistration(h, conn, existingInfo, pkt, buf)
		}

		// HexID не совпадает — пробуем альтернативный ID если разрешено
		if pkt.AcceptAlternate {
			// Пытаемся найти свободный ID
			newInfo := gameserver.NewGameServerInfo(0, pkt.HexID)
			assignedID, ok := h.gsTable.RegisterWithFirstAvailableID(newInfo, 127)
			if !ok {
				// Нет свободных ID
				slog.Warn("no free server ID available", "requested_id", requestedID, "ip", conn.IP())
				n := serverpackets.LoginServerFail(buf, gameserver.ReasonNoFreeID)
				return n, false, nil
			}

			slog.Info("registered GameServer with alternative ID", "requested_id", requestedID, "assigned_id", assignedID, "ip", conn.IP())
			return finalizeRegistration(h, conn, newInfo, pkt, buf)
		}

		// HexID не совпадает и альтернативный ID не разрешён — отказываем
		slog.Warn("wrong hexID", "id", requestedID, "ip", conn.IP())
		n := serverpackets.LoginServerFail(buf, gameserver.ReasonWrongHexID)
		return n, false, nil
	}

	// ID не существует — проверяем, разрешена ли регистрация новых серверов
	// TODO: добавить конфиг ACCEPT_NEW_GAMESERVER (пока всегда true)
	acceptNew := true

	if !acceptNew {
		slog.Warn("new GameServer registration not allowed", "id", requestedID, "ip", conn.IP())
		n := serverpackets.LoginServerFail(buf, gameserver.ReasonWrongHexID)
		return n, false, nil
	}

	// Регистрируем новый сервер
	newInfo := gameserver.NewGameServerInfo(requestedID, pkt.HexID)
	if !h.gsTable.Register(requestedID, newInfo) {
		// ID занят (race condition)
		slog.Warn("server ID reserved (race condition)", "id", requestedID, "ip", conn.IP())
		n := serverpackets.LoginServerFail(buf, gameserver.ReasonIDReserved)
		return n, false, nil
	}

	slog.Info("registered new GameServer", "id", requestedID, "ip", conn.IP())
	return finalizeRegistration(h, conn, newInfo, pkt, buf)
}

// finalizeRegistration завершает регистрацию GameServer: обновляет info, отправляет AuthResponse.
func finalizeRegistration(h *Handler, conn *GSConnection, info *gameserver.GameServerInfo, pkt clientpackets.GameServerAuth, buf []byte) (int, bool, error) {
	// Обновляем информацию о сервере
	info.SetPort(int(pkt.Port))
	info.SetMaxPlayers(int(pkt.MaxPlayers))

	// Конвертируем hosts, сохраняя привязку subnet → host
	hosts := make([]gameserver.HostEntry, len(pkt.Hosts))
	for i, host := range pkt.Hosts {
		hosts[i] = gameserver.HostEntry{Subnet: host.Subnet, Host: host.Host}
	}
	info.SetHosts(hosts)

	// Помечаем как аутентифицированный
	info.SetAuthed(true)

	// Привязываем к соединению
	conn.AttachGameServerInfo(info)

	// Переключаем состояние
	conn.SetState(gameserver.GSStateAuthed)

	h.registerServer(info.ID(), conn)

	// Отправляем AuthResponse
	serverID := byte(info.ID())
	serverName := fmt.Sprintf("Server %d", info.ID()) // TODO: загружать из конфига/БД
	n := serverpackets.AuthResponse(buf, serverID, serverName)

	slog.Info("GameServer authenticated successfully",
		"id", info.ID(),
		"port", info.Port(),
		"maxPlayers", info.MaxPlayers(),
		"ip", conn.IP())

	return n, true, nil
}

func handlePlayerInGame(_ context.Context, _ *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	// Парсим пакет
	var pkt clientpackets.PlayerInGame
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing PlayerInGame packet: %w", err)
	}

	// Добавляем всех игроков в список онлайн
	for _, account := range pkt.Accounts {
		conn.AddAccount(account)
	}

	gsInfo := conn.GameServerInfo()
	if gsInfo != nil {
		slog.Info("players registered as online",
			"count", len(pkt.Accounts),
			"server_id", gsInfo.ID(),
			"ip", conn.IP())
	}

	// Не отправляем ответ
	return 0, true, nil
}

func handlePlayerLogout(_ context.Context, h *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	// Парсим пакет
	var pkt clientpackets.PlayerLogout
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing PlayerLogout packet: %w", err)
	}

	// Удаляем игрока из списка онлайн
	conn.RemoveAccount(pkt.Account)
	if h.onlineAccounts != nil {
		h.onlineAccounts.Leave(pkt.Account)
	}

	gsInfo := conn.GameServerInfo()
	if gsInfo != nil {
		slog.Info("player logged out", "account", pkt.Account, "server_id", gsInfo.ID(), "ip", conn.IP())
	}

	// Не отправляем ответ
	return 0, true, nil
}

func handlePlayerAuthRequest(_ context.Context, h *Handler, conn *GSConnection, body []byte, buf []byte) (int, bool, error) {
	// Парсим пакет
	var pkt clientpackets.PlayerAuthRequest
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing PlayerAuthRequest packet: %w", err)
	}

	// TODO: добавить флаг showLicence из конфига (пока используем false)
	showLicence := false

	// Валидируем SessionKey через SessionManager
	valid := h.sessionManager.Validate(pkt.Account, pkt.SessionKey, showLicence)

	if valid {
		// Удаляем сессию (игрок переходит на GS)
		h.sessionManager.Remove(pkt.Account)
		if h.onlineAccounts != nil {
			if gsInfo := conn.GameServerInfo(); gsInfo != nil {
				h.onlineAccounts.Join(pkt.Account, gsInfo.ID(), pkt.SessionKey, conn.IP())
			}
		}
		slog.Info("player session validated successfully", "account", pkt.Account)
	} else {
		slog.Warn("player session validation failed", "account", pkt.Account)
	}

	// Отправляем PlayerAuthResponse
	n := serverpackets.PlayerAuthResponse(buf, pkt.Account, valid)
	return n, true, nil
}

func handlePlayerTracert(_ context.Context, _ *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.PlayerTracert
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing PlayerTracert packet: %w", err)
	}

	slog.Debug("player tracert", "account", pkt.Account, "hops", pkt.Hops, "ip", conn.IP())

	return 0, true, nil
}

func handleReplyCharacters(_ context.Context, h *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.ReplyCharacters
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing ReplyCharacters packet: %w", err)
	}

	gsInfo := conn.GameServerInfo()
	if gsInfo == nil {
		return 0, false, fmt.Errorf("ReplyCharacters received but GameServer not authenticated")
	}

	peerID := fmt.Sprintf("%d", gsInfo.ID())
	h.broker.Resolve(peerID, "chars:"+pkt.Account, len(pkt.Characters))

	return 0, true, nil
}

func handleChangeAccessLevel(ctx context.Context, h *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.ChangeAccessLevel
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing ChangeAccessLevel packet: %w", err)
	}

	if h.db == nil {
		slog.Warn("ChangeAccessLevel received with no database wired", "account", pkt.Account, "level", pkt.Level)
		return 0, true, nil
	}

	if err := h.db.UpdateAccessLevel(ctx, pkt.Account, pkt.Level); err != nil {
		slog.Error("updating access level", "account", pkt.Account, "level", pkt.Level, "error", err)
		return 0, true, nil
	}

	slog.Info("access level changed", "account", pkt.Account, "level", pkt.Level, "ip", conn.IP())
	return 0, true, nil
}

func handleRequestTempBan(_ context.Context, h *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.RequestTempBan
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing RequestTempBan packet: %w", err)
	}

	if h.bans == nil {
		slog.Warn("RequestTempBan received with no ban list wired", "account", pkt.Account, "ip", pkt.IP)
		return 0, true, nil
	}

	duration := time.Duration(pkt.DurationMinutes) * time.Minute
	h.bans.Ban(pkt.IP, duration)

	slog.Info("temp ban applied", "account", pkt.Account, "ip", pkt.IP, "duration", duration, "requested_by", conn.IP())
	return 0, true, nil
}

func handleServerStatus(_ context.Context, _ *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	// Парсим пакет
	var pkt clientpackets.ServerStatus
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing ServerStatus packet: %w", err)
	}

	gsInfo := conn.GameServerInfo()
	if gsInfo == nil {
		return 0, false, fmt.Errorf("ServerStatus received but GameServer not authenticated")
	}

	// Обновляем атрибуты сервера
	// Согласно ServerStatus.java:66 и константам ServerAttr* в gameserver/types.go
	for _, attr := range pkt.Attributes {
		switch attr.ID {
		case 0: // showingBrackets
			gsInfo.SetShowingBrackets(attr.Value != 0)
		case 1: // serverType
			gsInfo.SetServerType(int(attr.Value))
		case 2: // status
			gsInfo.SetStatus(int(attr.Value))
		case 3: // ageLimit
			gsInfo.SetAgeLimit(int(attr.Value))
		case 4: // maxPlayers
			gsInfo.SetMaxPlayers(int(attr.Value))
		default:
			slog.Warn("unknown ServerStatus attribute", "id", attr.ID, "value", attr.Value)
		}
	}

	slog.Info("server status updated",
		"server_id", gsInfo.ID(),
		"status", gsInfo.Status(),
		"maxPlayers", gsInfo.MaxPlayers(),
		"ip", conn.IP())

	// Не отправляем ответ
	return 0, true, nil
}
