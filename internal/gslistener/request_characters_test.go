package gslistener

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/udisondev/la2go/internal/crypto"
	"github.com/udisondev/la2go/internal/db"
	"github.com/udisondev/la2go/internal/gameserver"
	"github.com/udisondev/la2go/internal/login"
)

func TestRequestCharacterCount_ResolvesOnReply(t *testing.T) {
	var database *db.DB
	gsTable := gameserver.NewGameServerTable(database)
	sessionManager := login.NewSessionManager()
	handler := NewHandler(database, gsTable, sessionManager)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	rsaKey, err := crypto.GenerateRSAKeyPair512()
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair512: %v", err)
	}
	conn, err := NewGSConnection(server, rsaKey)
	if err != nil {
		t.Fatalf("NewGSConnection: %v", err)
	}
	conn.SetState(gameserver.GSStateAuthed)
	info := gameserver.NewGameServerInfo(1, make([]byte, 32))
	info.SetAuthed(true)
	conn.AttachGameServerInfo(info)
	handler.registerServer(1, conn)

	// Drain whatever RequestCharacterCount pushes down the pipe so
	// SendPacket doesn't block on the unbuffered net.Pipe.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		readBuf := make([]byte, 1024)
		ReadPacket(client, conn.BlowfishCipher(), readBuf)
	}()

	resultCh := make(chan int, 1)
	errCh := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		count, err := handler.RequestCharacterCount(ctx, 1, "tester")
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- count
	}()

	<-drained
	// RequestCharacterCount registers its Await right after SendPacket
	// returns; give that goroutine a moment to reach it before resolving.
	time.Sleep(50 * time.Millisecond)

	// Simulate the GameServer's ReplyCharacters answer arriving.
	replyBody := buildReplyCharactersBody(t, "tester", 2)
	if _, _, err := handleReplyCharacters(context.Background(), handler, conn, replyBody, nil); err != nil {
		t.Fatalf("handleReplyCharacters: %v", err)
	}

	select {
	case count := <-resultCh:
		if count != 2 {
			t.Errorf("expected character count 2, got %d", count)
		}
	case err := <-errCh:
		t.Fatalf("RequestCharacterCount returned error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for RequestCharacterCount to resolve")
	}
}

func TestRequestCharacterCount_ErrorsWhenServerNotConnected(t *testing.T) {
	var database *db.DB
	gsTable := gameserver.NewGameServerTable(database)
	sessionManager := login.NewSessionManager()
	handler := NewHandler(database, gsTable, sessionManager)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := handler.RequestCharacterCount(ctx, 99, "nobody"); err == nil {
		t.Fatal("expected error for an unregistered server id")
	}
}

func buildReplyCharactersBody(t *testing.T, account string, count int) []byte {
	t.Helper()
	buf := make([]byte, 512)
	pos := 0
	for _, r := range account {
		buf[pos] = byte(r)
		buf[pos+1] = 0
		pos += 2
	}
	buf[pos], buf[pos+1] = 0, 0
	pos += 2
	buf[pos] = byte(count)
	pos++
	for i := 0; i < count; i++ {
		name := "Char"
		for _, r := range name {
			buf[pos] = byte(r)
			buf[pos+1] = 0
			pos += 2
		}
		buf[pos], buf[pos+1] = 0, 0
		pos += 2
		buf[pos], buf[pos+1], buf[pos+2], buf[pos+3] = 10, 0, 0, 0
		pos += 4
	}
	return buf[:pos]
}
