package gameserver

import (
	"context"
	"net"
	"testing"
	"unicode/utf16"

	"github.com/udisondev/la2go/internal/gameserver/clientpackets"
	"github.com/udisondev/la2go/internal/gameserver/serverpackets"
)

type fakeRepo struct {
	characters map[string][]CharacterSummary
	taken      map[string]bool
	nextObject uint32
	deleteErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		characters: make(map[string][]CharacterSummary),
		taken:      make(map[string]bool),
	}
}

func (f *fakeRepo) ListCharacters(_ context.Context, account string) ([]CharacterSummary, error) {
	return f.characters[account], nil
}

func (f *fakeRepo) NameTaken(_ context.Context, name string) (bool, error) {
	return f.taken[name], nil
}

func (f *fakeRepo) CreateCharacter(_ context.Context, account string, slot int32, summary CharacterSummary) (uint32, error) {
	f.nextObject++
	f.taken[summary.Name] = true
	f.characters[account] = append(f.characters[account], summary)
	return f.nextObject, nil
}

func (f *fakeRepo) SoftDeleteCharacter(_ context.Context, account string, slot int32) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	remaining := f.characters[account][:0]
	for _, c := range f.characters[account] {
		if c.Slot != slot {
			remaining = append(remaining, c)
		}
	}
	f.characters[account] = remaining
	return nil
}

type fakeSessions struct {
	valid bool
	err   error
}

func (f *fakeSessions) ValidatePlayer(_ context.Context, _ string, _, _ int32) (bool, error) {
	return f.valid, f.err
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return NewClient(server)
}

func encodeUTF16(s string) []byte {
	out := make([]byte, 0, (len(s)+1)*2)
	for _, r := range utf16.Encode([]rune(s)) {
		out = append(out, byte(r), byte(r>>8))
	}
	return append(out, 0, 0)
}

func putInt32(buf []byte, v int32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func TestHandleAuthLogin_RejectsInvalidSession(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, &fakeSessions{valid: false}, NewClients(), nil, nil)
	c := newTestClient(t)

	body := append(encodeUTF16("tester"), putInt32(putInt32(nil, 1), 2)...)
	buf := make([]byte, 256)
	_, err := h.handleAuthLogin(context.Background(), c, body, buf)
	if err == nil {
		t.Fatal("expected error for invalid session")
	}
}

func TestHandleAuthLogin_AcceptsValidSessionAndListsCharacters(t *testing.T) {
	repo := newFakeRepo()
	repo.characters["tester"] = []CharacterSummary{{Slot: 0, Name: "Hero", Level: 10}}
	clients := NewClients()
	h := NewHandler(repo, &fakeSessions{valid: true}, clients, nil, nil)
	c := newTestClient(t)

	body := append(encodeUTF16("tester"), putInt32(putInt32(nil, 1), 2)...)
	buf := make([]byte, 1024)
	n, err := h.handleAuthLogin(context.Background(), c, body, buf)
	if err != nil {
		t.Fatalf("handleAuthLogin: %v", err)
	}
	if n == 0 {
		t.Fatal("expected non-empty CharacterSelectionInfo reply")
	}
	if c.AccountID() != "tester" {
		t.Errorf("expected account 'tester', got %q", c.AccountID())
	}
	if got, ok := clients.Get("tester"); !ok || got != c {
		t.Error("expected client registered under account in the shared registry")
	}
}

func TestHandleCharacterCreate_RejectsInvalidName(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, &fakeSessions{valid: true}, NewClients(), nil, nil)
	c := newTestClient(t)
	c.Authenticate("tester", 1, 2)

	body := append(encodeUTF16("a"), make([]byte, 12)...) // name too short
	buf := make([]byte, 64)
	n, err := h.handleCharacterCreate(context.Background(), c, body, buf)
	if err != nil {
		t.Fatalf("handleCharacterCreate: %v", err)
	}
	if buf[1] != byte(serverpackets.CreateReasonNameInvalid) {
		t.Errorf("expected CreateReasonNameInvalid, got reply %v (n=%d)", buf[:n], n)
	}
}

func TestHandleCharacterCreate_RejectsWhenSlotsFull(t *testing.T) {
	repo := newFakeRepo()
	full := make([]CharacterSummary, MaxCharacterSlots)
	for i := range full {
		full[i] = CharacterSummary{Slot: int32(i), Name: "Filler"}
	}
	repo.characters["tester"] = full
	h := NewHandler(repo, &fakeSessions{valid: true}, NewClients(), nil, nil)
	c := newTestClient(t)
	c.Authenticate("tester", 1, 2)
	c.SetCharacters(full)

	body := append(encodeUTF16("NewHero"), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	buf := make([]byte, 64)
	n, err := h.handleCharacterCreate(context.Background(), c, body, buf)
	if err != nil {
		t.Fatalf("handleCharacterCreate: %v", err)
	}
	if buf[1] != byte(serverpackets.CreateReasonTooManySlots) {
		t.Errorf("expected CreateReasonTooManySlots, got reply %v (n=%d)", buf[:n], n)
	}
}

func TestHandleCharacterCreate_Succeeds(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, &fakeSessions{valid: true}, NewClients(), nil, nil)
	c := newTestClient(t)
	c.Authenticate("tester", 1, 2)

	body := append(encodeUTF16("NewHero"), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	buf := make([]byte, 64)
	n, err := h.handleCharacterCreate(context.Background(), c, body, buf)
	if err != nil {
		t.Fatalf("handleCharacterCreate: %v", err)
	}
	if buf[1] != byte(serverpackets.CreateReasonOK) {
		t.Errorf("expected CreateReasonOK, got reply %v (n=%d)", buf[:n], n)
	}
	if len(c.Characters()) != 1 || c.Characters()[0].Name != "NewHero" {
		t.Errorf("expected client to track the new character, got %+v", c.Characters())
	}
}

func TestHandlePacket_DispatchesProtocolVersionAsOrdinaryOpcode(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, &fakeSessions{valid: true}, NewClients(), nil, nil)
	c := newTestClient(t)

	packet := append([]byte{clientpackets.OpcodeProtocolVersion}, putInt32(nil, protocolRevision)...)
	buf := make([]byte, 64)
	n, err := h.HandlePacket(context.Background(), c, packet, buf)
	if err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	if n == 0 {
		t.Fatal("expected a ProtocolResponse reply")
	}
}

func TestOpcodes_NoCollisions(t *testing.T) {
	opcodes := map[byte]string{
		clientpackets.OpcodeProtocolVersion: "ProtocolVersion",
		clientpackets.OpcodeAuthLogin:       "AuthLogin",
		clientpackets.OpcodeCharacterCreate: "CharacterCreate",
		clientpackets.OpcodeCharacterSelect: "CharacterSelect",
		clientpackets.OpcodeCharacterDelete: "CharacterDelete",
		clientpackets.OpcodeMoveToLocation:  "MoveToLocation",
	}
	seen := make(map[byte]string)
	for op, name := range opcodes {
		if other, ok := seen[op]; ok {
			t.Errorf("opcode 0x%02x used by both %q and %q", op, other, name)
		}
		seen[op] = name
	}
}

func TestNextFreeSlot(t *testing.T) {
	cases := []struct {
		name     string
		existing []CharacterSummary
		want     int32
	}{
		{"empty", nil, 0},
		{"gap in middle", []CharacterSummary{{Slot: 0}, {Slot: 2}}, 1},
		{"fills sequentially", []CharacterSummary{{Slot: 0}, {Slot: 1}}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextFreeSlot(tc.existing); got != tc.want {
				t.Errorf("nextFreeSlot(%v) = %d, want %d", tc.existing, got, tc.want)
			}
		})
	}
}
