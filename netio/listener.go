package netio

import (
	"context"
	"net"
	"sync"

	"github.com/hapcore/hap/event"
)

// MaxConcurrentConnections bounds simultaneously accepted controller
// connections to 16.
const MaxConcurrentConnections = 16

// HAPListener wraps a net.Listener, creating a fresh Session and
// RecordConn for every accepted connection and tracking the active set:
// created on TCP accept, destroyed on close.
type HAPListener struct {
	net.Listener

	mu    sync.Mutex
	conns map[*RecordConn]struct{}
}

// NewHAPListener wraps ln.
func NewHAPListener(ln net.Listener) *HAPListener {
	return &HAPListener{Listener: ln, conns: make(map[*RecordConn]struct{})}
}

// Accept blocks for the next connection like net.Listener.Accept, but
// immediately closes any connection accepted while MaxConcurrentConnections
// are already active rather than handing it to the caller.
func (l *HAPListener) Accept() (net.Conn, error) {
	for {
		raw, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		full := len(l.conns) >= MaxConcurrentConnections
		l.mu.Unlock()
		if full {
			raw.Close()
			continue
		}

		rc := NewRecordConn(raw, NewSession())
		l.mu.Lock()
		l.conns[rc] = struct{}{}
		l.mu.Unlock()

		return &trackedConn{RecordConn: rc, listener: l}, nil
	}
}

// ActiveSessions returns a snapshot of every session currently tracked
// by this listener, the same set the "is any session pairing" query
// scans.
func (l *HAPListener) ActiveSessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Session, 0, len(l.conns))
	for c := range l.conns {
		out = append(out, c.Session)
	}
	return out
}

// ActiveConnections returns every currently tracked connection, used by
// Server.Stop to force-close them.
func (l *HAPListener) ActiveConnections() []net.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]net.Conn, 0, len(l.conns))
	for c := range l.conns {
		out = append(out, c)
	}
	return out
}

// AnySessionPairing reports whether some session other than except is
// currently mid pair-setup, implementing the cross-session lockout of
// as a query rather than a standalone flag.
func (l *HAPListener) AnySessionPairing(except *Session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for c := range l.conns {
		if c.Session == except {
			continue
		}
		if c.Session.IsPairing() {
			return true
		}
	}
	return false
}

// CloseSessionsWithPairingID force-closes every connection whose session
// authenticated as the given pairing slot, so removing a pairing takes
// effect immediately instead of waiting for the peer to disconnect.
func (l *HAPListener) CloseSessionsWithPairingID(id int) {
	l.mu.Lock()
	var toClose []*trackedConn
	for c := range l.conns {
		if c.Session.Authenticated() && c.Session.PeerPairingID() == id {
			toClose = append(toClose, &trackedConn{RecordConn: c, listener: l})
		}
	}
	l.mu.Unlock()

	for _, c := range toClose {
		c.Close()
	}
}

func (l *HAPListener) forget(c *RecordConn) {
	l.mu.Lock()
	delete(l.conns, c)
	l.mu.Unlock()
}

// trackedConn removes itself from the listener's active set on Close.
// It also satisfies event.Sink by delegating subscription queries to its
// Session and writing EVENT pushes directly to the wire, so the event
// package never needs to import netio (see DESIGN.md).
type trackedConn struct {
	*RecordConn
	listener *HAPListener
}

func (c *trackedConn) Close() error {
	c.listener.forget(c.RecordConn)
	c.Session.ClearSubscriptions()
	return c.RecordConn.Close()
}

// ID identifies this connection's sink for event.Dispatcher registration
// and origin exclusion.
func (c *trackedConn) ID() string { return c.Session.ID.String() }

// IsSubscribed and ClearSubscriptions delegate to the Session; RecordConn
// embeds Session as a named field, not an anonymous one, so these are not
// promoted automatically.
func (c *trackedConn) IsSubscribed(iid uint64) bool { return c.Session.IsSubscribed(iid) }
func (c *trackedConn) ClearSubscriptions()          { c.Session.ClearSubscriptions() }

// Send writes one EVENT pseudo-response's bytes to the connection; the
// record layer frames and encrypts them transparently when the session
// is Encrypted.
func (c *trackedConn) Send(payload []byte) error {
	_, err := c.Write(payload)
	return err
}

// Sink adapts the net.Conn Accept returned into an event.Sink, for
// callers that register it with a Dispatcher.
func Sink(conn net.Conn) (event.Sink, bool) {
	tc, ok := conn.(*trackedConn)
	return tc, ok
}

type sessionContextKey struct{}

// ContextWithConn returns a context carrying conn's Session, for use as
// an http.Server's ConnContext hook so handlers can recover the Session
// for the connection they were called on.
func ContextWithConn(ctx context.Context, conn net.Conn) context.Context {
	if tc, ok := conn.(*trackedConn); ok {
		return context.WithValue(ctx, sessionContextKey{}, tc.Session)
	}
	return ctx
}

// ContextWithSession returns a context carrying sess directly, for
// handler tests that exercise a Session without a real accepted
// connection behind it.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext recovers the Session injected by ContextWithConn or
// ContextWithSession.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}
