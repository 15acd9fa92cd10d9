// Package gslink is the GameServer-side counterpart to internal/gslistener:
// it dials out to the login server's GS-link port, performs the
// BlowFishKey/GameServerAuth handshake, and keeps the connection alive
// for PlayerInGame/PlayerLogout/PlayerAuthRequest/ServerStatus traffic
// plus unsolicited pushes (KickPlayer, RequestCharacters).
package gslink

import (
	"fmt"
	"unicode/utf16"

	"github.com/udisondev/la2go/internal/gameserver"
	"github.com/udisondev/la2go/internal/gslistener/packet"
	"github.com/udisondev/la2go/internal/login"
)

// Opcodes this side sends (GS -> LS) and parses (LS -> GS). Mirrors
// internal/gslistener's constants.go from the other end of the wire.
const (
	opcodeBlowFishKey       = 0x00
	opcodeGameServerAuth    = 0x01
	opcodePlayerInGame      = 0x02
	opcodePlayerLogout      = 0x03
	opcodePlayerAuthRequest = 0x05
	opcodeServerStatus      = 0x06
	opcodePlayerTracert     = 0x07
	opcodeReplyCharacters   = 0x08

	opcodeInitLS             = 0x00
	opcodeLoginServerFail    = 0x01
	opcodeAuthResponse       = 0x02
	opcodePlayerAuthResponse = 0x03
	opcodeKickPlayer         = 0x04
	opcodeRequestCharacters  = 0x05
)

func writeString(buf []byte, pos int, s string) int {
	for _, r := range utf16.Encode([]rune(s)) {
		buf[pos] = byte(r)
		buf[pos+1] = byte(r >> 8)
		pos += 2
	}
	buf[pos] = 0
	buf[pos+1] = 0
	return pos + 2
}

// buildBlowFishKey writes the encrypted Blowfish key this game server
// wants the login server to switch to, opcode 0x00.
func buildBlowFishKey(buf []byte, encryptedKey []byte) int {
	pos := 0
	buf[pos] = opcodeBlowFishKey
	pos++
	pos += copy(buf[pos:], encryptedKey)
	return pos
}

// AuthParams is everything GameServerAuth needs to register this server.
type AuthParams struct {
	ID              byte
	AcceptAlternate bool
	Port            int16
	MaxPlayers      int32
	HexID           []byte
	Hosts           []gameserver.HostEntry
}

func buildGameServerAuth(buf []byte, p AuthParams) int {
	pos := 0
	buf[pos] = opcodeGameServerAuth
	pos++
	buf[pos] = p.ID
	pos++
	if p.AcceptAlternate {
		buf[pos] = 1
	} else {
		buf[pos] = 0
	}
	pos++
	buf[pos] = 0 // reserved
	pos++
	buf[pos], buf[pos+1] = byte(p.MaxPlayers), byte(p.MaxPlayers>>8)
	pos += 2
	buf[pos], buf[pos+1] = byte(p.Port), byte(p.Port>>8)
	pos += 2
	buf[pos] = byte(len(p.Hosts))
	pos++
	for _, h := range p.Hosts {
		pos = writeString(buf, pos, h.Subnet)
		pos = writeString(buf, pos, h.Host)
	}
	pos += copy(buf[pos:], p.HexID)
	return pos
}

func buildPlayerInGame(buf []byte, accounts []string) int {
	pos := 0
	buf[pos] = opcodePlayerInGame
	pos++
	count := int16(len(accounts))
	buf[pos], buf[pos+1] = byte(count), byte(count>>8)
	pos += 2
	for _, account := range accounts {
		pos = writeString(buf, pos, account)
	}
	return pos
}

func buildPlayerLogout(buf []byte, account string) int {
	pos := 0
	buf[pos] = opcodePlayerLogout
	pos++
	return writeString(buf, pos, account)
}

func buildPlayerAuthRequest(buf []byte, account string, key login.SessionKey) int {
	pos := 0
	buf[pos] = opcodePlayerAuthRequest
	pos++
	pos = writeString(buf, pos, account)
	for _, v := range []int32{key.PlayOkID1, key.PlayOkID2, key.LoginOkID1, key.LoginOkID2} {
		buf[pos], buf[pos+1], buf[pos+2], buf[pos+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
		pos += 4
	}
	return pos
}

// ServerStatusAttr is one (id, value) pair in a ServerStatus update.
type ServerStatusAttr struct {
	ID    int32
	Value int32
}

func buildServerStatus(buf []byte, attrs []ServerStatusAttr) int {
	pos := 0
	buf[pos] = opcodeServerStatus
	pos++
	count := int32(len(attrs))
	buf[pos], buf[pos+1], buf[pos+2], buf[pos+3] = byte(count), byte(count>>8), byte(count>>16), byte(count>>24)
	pos += 4
	for _, a := range attrs {
		for _, v := range []int32{a.ID, a.Value} {
			buf[pos], buf[pos+1], buf[pos+2], buf[pos+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
			pos += 4
		}
	}
	return pos
}

func buildReplyCharacters(buf []byte, account string, characters []gameserver.CharacterSummary) int {
	pos := 0
	buf[pos] = opcodeReplyCharacters
	pos++
	pos = writeString(buf, pos, account)
	if len(characters) > 255 {
		characters = characters[:255]
	}
	buf[pos] = byte(len(characters))
	pos++
	for _, c := range characters {
		pos = writeString(buf, pos, c.Name)
		v := c.Level
		buf[pos], buf[pos+1], buf[pos+2], buf[pos+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
		pos += 4
	}
	return pos
}

// initLS is the first frame read from the login server right after dial.
type initLS struct {
	Revision   int32
	RSAModulus []byte
}

func parseInitLS(body []byte) (initLS, error) {
	r := packet.NewReader(body)
	rev, err := r.ReadInt()
	if err != nil {
		return initLS{}, fmt.Errorf("reading revision: %w", err)
	}
	keySize, err := r.ReadInt()
	if err != nil {
		return initLS{}, fmt.Errorf("reading keySize: %w", err)
	}
	modulus, err := r.ReadBytes(int(keySize))
	if err != nil {
		return initLS{}, fmt.Errorf("reading modulus: %w", err)
	}
	return initLS{Revision: rev, RSAModulus: modulus}, nil
}

type authResponse struct {
	ServerID   byte
	ServerName string
}

func parseAuthResponse(body []byte) (authResponse, error) {
	r := packet.NewReader(body)
	id, err := r.ReadByte()
	if err != nil {
		return authResponse{}, fmt.Errorf("reading serverId: %w", err)
	}
	name, err := r.ReadString()
	if err != nil {
		return authResponse{}, fmt.Errorf("reading serverName: %w", err)
	}
	return authResponse{ServerID: id, ServerName: name}, nil
}

func parseLoginServerFail(body []byte) (byte, error) {
	if len(body) < 1 {
		return 0, fmt.Errorf("LoginServerFail body too short")
	}
	return body[0], nil
}

type playerAuthResponse struct {
	Account string
	Success bool
}

func parsePlayerAuthResponse(body []byte) (playerAuthResponse, error) {
	r := packet.NewReader(body)
	account, err := r.ReadString()
	if err != nil {
		return playerAuthResponse{}, fmt.Errorf("reading account: %w", err)
	}
	result, err := r.ReadByte()
	if err != nil {
		return playerAuthResponse{}, fmt.Errorf("reading result: %w", err)
	}
	return playerAuthResponse{Account: account, Success: result != 0}, nil
}

func parseKickPlayer(body []byte) (string, error) {
	r := packet.NewReader(body)
	return r.ReadString()
}

func parseRequestCharacters(body []byte) (string, error) {
	r := packet.NewReader(body)
	return r.ReadString()
}
