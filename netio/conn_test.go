package netio

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairedSessions returns two sessions pre-seeded with the key layout a
// real pair-verify exchange produces: each side's read key is the
// other's write key.
func pairedSessions() (accessory, controller *Session) {
	var a2c, c2a [32]byte
	for i := range a2c {
		a2c[i] = byte(i + 1)
	}
	for i := range c2a {
		c2a[i] = byte(200 + i)
	}

	accessory = NewSession()
	accessory.FinishVerify(c2a, a2c, 0, 1)

	controller = NewSession()
	controller.FinishVerify(a2c, c2a, 0, 1)
	return
}

func TestRecordConnRoundTripsEncryptedPayload(t *testing.T) {
	accSess, ctrlSess := pairedSessions()

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	accConn := NewRecordConn(server, accSess)
	ctrlConn := NewRecordConn(client, ctrlSess)

	msg := []byte(`{"characteristics":[{"aid":1,"iid":10,"value":true}]}`)
	errCh := make(chan error, 1)
	go func() {
		_, err := ctrlConn.Write(msg)
		errCh <- err
	}()

	buf := make([]byte, len(msg))
	_, err := io.ReadFull(accConn, buf)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, msg, buf)
}

func TestRecordConnRoundTripsFrameLargerThanMaxFrameLen(t *testing.T) {
	accSess, ctrlSess := pairedSessions()

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	accConn := NewRecordConn(server, accSess)
	ctrlConn := NewRecordConn(client, ctrlSess)

	msg := make([]byte, MaxFrameLen*2+37)
	for i := range msg {
		msg[i] = byte(i)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := ctrlConn.Write(msg)
		errCh <- err
	}()

	buf := make([]byte, len(msg))
	_, err := io.ReadFull(accConn, buf)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, msg, buf)
}

func TestRecordConnPassesThroughPlaintextBeforeEncryption(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	accConn := NewRecordConn(server, NewSession())
	ctrlConn := NewRecordConn(client, NewSession())

	msg := []byte("M1 TLV8 bytes")
	errCh := make(chan error, 1)
	go func() {
		_, err := ctrlConn.Write(msg)
		errCh <- err
	}()

	buf := make([]byte, len(msg))
	_, err := io.ReadFull(accConn, buf)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, msg, buf)
}

func TestRecordConnRejectsTamperedFrame(t *testing.T) {
	accSess, ctrlSess := pairedSessions()

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	accConn := NewRecordConn(server, accSess)

	framed, err := EncodeFrame(ctrlSess.WriteKey(), ctrlSess.NextWriteCounter(), []byte("hello"))
	require.NoError(t, err)
	framed[len(framed)-1] ^= 0xFF // corrupt the AEAD tag

	go func() {
		client.Write(framed)
	}()

	buf := make([]byte, 5)
	_, err = io.ReadFull(accConn, buf)
	assert.ErrorIs(t, err, ErrAuthFailed)
}
