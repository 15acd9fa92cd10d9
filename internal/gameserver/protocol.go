package gameserver

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/udisondev/la2go/internal/crypto"
)

// WritePacket frames payload with a 2-byte little-endian length header,
// encrypts it in place with gc, and writes it to w.
// Precondition: payload lives at buf[2 : 2+payloadLen].
func WritePacket(w io.Writer, gc *crypto.GameCrypt, buf []byte, payloadLen int) error {
	if len(buf) < 2+payloadLen {
		return fmt.Errorf("write packet: buffer too small (need %d, have %d)", 2+payloadLen, len(buf))
	}
	gc.Encrypt(buf[2 : 2+payloadLen])
	binary.LittleEndian.PutUint16(buf[:2], uint16(2+payloadLen))
	if _, err := w.Write(buf[:2+payloadLen]); err != nil {
		return fmt.Errorf("writing packet: %w", err)
	}
	return nil
}

// ReadPacket reads one length-prefixed packet from r into buf and decrypts
// it in place with gc, returning the payload (without the length header).
func ReadPacket(r io.Reader, gc *crypto.GameCrypt, buf []byte) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading packet header: %w", err)
	}
	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	if totalLen < 2 {
		return nil, fmt.Errorf("invalid packet length: %d", totalLen)
	}
	payloadLen := totalLen - 2
	if payloadLen == 0 {
		return nil, nil
	}
	if payloadLen > len(buf) {
		return nil, fmt.Errorf("packet payload %d exceeds buffer size %d", payloadLen, len(buf))
	}
	payload := buf[:payloadLen]
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading packet payload: %w", err)
	}
	gc.Decrypt(payload)
	return payload, nil
}
