package netio

import (
	"bytes"
	"net"
	"sync"
)

// RecordConn wraps a raw net.Conn with the HAP record layer. Before
// pair-verify completes it passes bytes through unmodified (plaintext
// pair-setup/pair-verify traffic); once its Session reaches ModeEncrypted
// every Read/Write goes through ChaCha20-Poly1305 framing instead.
//
// Write is separately mutexed because the event dispatcher pushes
// asynchronous EVENT messages on the same connection a request may be
// mid-response on ; Read has only ever one caller, the
// http.Server goroutine parsing this connection's requests.
type RecordConn struct {
	net.Conn
	Session *Session

	readBuf bytes.Buffer
	writeMu sync.Mutex
}

// NewRecordConn wraps conn with a fresh session, used by the HAP listener
// on every accepted connection.
func NewRecordConn(conn net.Conn, session *Session) *RecordConn {
	return &RecordConn{Conn: conn, Session: session}
}

func (c *RecordConn) Read(p []byte) (int, error) {
	if !c.Session.IsEncrypted() {
		return c.Conn.Read(p)
	}

	for c.readBuf.Len() == 0 {
		plaintext, err := ReadFrame(c.Conn, c.Session.ReadKey(), c.Session.NextReadCounter())
		if err != nil {
			return 0, err
		}
		c.readBuf.Write(plaintext)
	}
	return c.readBuf.Read(p)
}

func (c *RecordConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if !c.Session.IsEncrypted() {
		return c.Conn.Write(p)
	}

	framed, err := EncodeFrames(c.Session.WriteKey(), c.Session.NextWriteCounter, p)
	if err != nil {
		return 0, err
	}
	if _, err := c.Conn.Write(framed); err != nil {
		return 0, err
	}
	return len(p), nil
}
