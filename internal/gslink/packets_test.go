package gslink

import (
	"testing"

	"github.com/udisondev/la2go/internal/gameserver"
	"github.com/udisondev/la2go/internal/login"
)

func TestBuildGameServerAuth_WritesOpcodeAndLength(t *testing.T) {
	// GameServerAuth itself is only ever parsed by the other side
	// (internal/gslistener), so this just exercises the builder doesn't
	// panic on the field layout and produces a sane opcode/length.
	buf := make([]byte, 512)
	auth := AuthParams{
		ID:              1,
		AcceptAlternate: true,
		Port:            7777,
		MaxPlayers:      100,
		HexID:           make([]byte, 32),
		Hosts: []gameserver.HostEntry{
			{Subnet: "0.0.0.0/0", Host: "127.0.0.1"},
		},
	}
	n := buildGameServerAuth(buf, auth)
	if n == 0 {
		t.Fatal("expected non-zero length")
	}
	if buf[0] != opcodeGameServerAuth {
		t.Errorf("expected opcode 0x%02x, got 0x%02x", opcodeGameServerAuth, buf[0])
	}
}

func TestParseInitLS(t *testing.T) {
	modulus := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	buf := make([]byte, 64)
	buf[0] = opcodeInitLS
	pos := 1
	putInt32LE(buf, pos, 0x102) // revision
	pos += 4
	putInt32LE(buf, pos, int32(len(modulus)))
	pos += 4
	pos += copy(buf[pos:], modulus)

	got, err := parseInitLS(buf[1:pos])
	if err != nil {
		t.Fatalf("parseInitLS: %v", err)
	}
	if got.Revision != 0x102 {
		t.Errorf("expected revision 0x102, got 0x%x", got.Revision)
	}
	if string(got.RSAModulus) != string(modulus) {
		t.Errorf("modulus mismatch: got %v want %v", got.RSAModulus, modulus)
	}
}

func TestBuildPlayerAuthRequest(t *testing.T) {
	buf := make([]byte, 256)
	key := login.SessionKey{PlayOkID1: 11, PlayOkID2: 22}
	n := buildPlayerAuthRequest(buf, "tester", key)

	if buf[0] != opcodePlayerAuthRequest {
		t.Fatalf("expected opcode 0x%02x, got 0x%02x", opcodePlayerAuthRequest, buf[0])
	}
	if n <= 1 {
		t.Fatalf("unexpected length %d", n)
	}
}

func TestBuildAndParsePlayerAuthResponse(t *testing.T) {
	buf := make([]byte, 256)
	pos := 0
	buf[pos] = opcodePlayerAuthResponse
	pos++
	pos = writeString(buf, pos, "tester")
	buf[pos] = 1 // success
	pos++

	got, err := parsePlayerAuthResponse(buf[1:pos])
	if err != nil {
		t.Fatalf("parsePlayerAuthResponse: %v", err)
	}
	if got.Account != "tester" || !got.Success {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestBuildReplyCharacters(t *testing.T) {
	buf := make([]byte, 512)
	chars := []gameserver.CharacterSummary{
		{Slot: 0, Name: "Hero", Level: 40},
		{Slot: 1, Name: "Sidekick", Level: 12},
	}
	n := buildReplyCharacters(buf, "tester", chars)
	if buf[0] != opcodeReplyCharacters {
		t.Errorf("expected opcode 0x%02x, got 0x%02x", opcodeReplyCharacters, buf[0])
	}
	if n <= 1 {
		t.Fatalf("unexpected length %d", n)
	}
}

func putInt32LE(buf []byte, pos int, v int32) {
	buf[pos] = byte(v)
	buf[pos+1] = byte(v >> 8)
	buf[pos+2] = byte(v >> 16)
	buf[pos+3] = byte(v >> 24)
}
