// Package server implements the TCP/HTTP front of the HAP core: a
// net.Listener wrapped by netio.HAPListener, served by a stock
// net/http.Server whose routes are the netio/endpoint handlers.
package server

import (
	"net"
	"net/http"
	"time"

	"github.com/hapcore/hap/accessory"
	"github.com/hapcore/hap/db"
	"github.com/hapcore/hap/event"
	"github.com/hapcore/hap/log"
	"github.com/hapcore/hap/netio"
	"github.com/hapcore/hap/netio/controller"
	"github.com/hapcore/hap/netio/endpoint"
	"github.com/hapcore/hap/netio/pair"
)

// Server provides a similar interface to http.Server to start and stop
// the HAP TCP listener.
type Server interface {
	// ListenAndServe starts the server, blocking until Stop is called.
	ListenAndServe() error
	// Port returns the port the server listens on.
	Port() string
	// Stop closes every active connection and the listener.
	Stop()
}

// Config bundles the collaborators NewServer wires to the HTTP surface.
type Config struct {
	Port         string
	SetupCode    string
	Container    *accessory.Container
	Pairings     db.PairingStore
	Keys         db.KeyStore
	Dispatcher   *event.Dispatcher

	// OnPairingChange is invoked on every pairing-state transition, so
	// callers can flip mDNS's `sf` flag.
	OnPairingChange func()
	// Restart is invoked when the last admin pairing is removed
	Restart func()
}

type hkServer struct {
	container  *accessory.Container
	pairings   db.PairingStore
	keys       db.KeyStore
	dispatcher *event.Dispatcher

	mux *http.ServeMux

	port     string
	listener *net.TCPListener
	hapLn    *netio.HAPListener

	onPairingChange func()
	restart         func()
}

// NewServer binds Config.Port (empty string picks a free port, as with
// net.Listen) and wires the HAP HTTP surface onto it.
func NewServer(c Config) Server {
	ln, err := net.Listen("tcp", ":"+c.Port)
	if err != nil {
		log.Info.Fatal(err)
	}
	port := ExtractPort(ln.Addr())

	if c.OnPairingChange == nil {
		c.OnPairingChange = func() {}
	}
	if c.Restart == nil {
		c.Restart = func() {}
	}

	s := &hkServer{
		container:       c.Container,
		pairings:        c.Pairings,
		keys:            c.Keys,
		dispatcher:      c.Dispatcher,
		mux:             http.NewServeMux(),
		listener:        ln.(*net.TCPListener),
		port:            port,
		onPairingChange: c.OnPairingChange,
		restart:         c.Restart,
	}
	s.setupEndpoints(c.SetupCode)
	return s
}

func (s *hkServer) Port() string { return s.port }

// ExtractPort pulls the port component out of a net.Addr's string form,
// used to read back the actual port net.Listen bound when Config.Port
// was empty.
func ExtractPort(addr net.Addr) string {
	_, port, _ := net.SplitHostPort(addr.String())
	return port
}

func (s *hkServer) Stop() {
	for _, c := range s.hapLn.ActiveConnections() {
		c.Close()
	}
	s.hapLn.Close()
}

// ListenAndServe wraps the bound TCP listener in a netio.HAPListener and
// serves the HAP HTTP surface on it. Idle/keep-alive timings follow
// (180 s idle, the closest net/http exposes to the raw
// socket-level 30 s probe / 4 probes being OS-level SO_KEEPALIVE tuning
// this package does not reach into).
func (s *hkServer) ListenAndServe() error {
	hapLn := netio.NewHAPListener(s.listener)
	s.hapLn = hapLn

	httpServer := &http.Server{
		Handler:     s.mux,
		IdleTimeout: 180 * time.Second,
		ConnContext: netio.ContextWithConn,
		ConnState:   s.onConnState,
	}
	return httpServer.Serve(hapLn)
}

// onConnState registers/unregisters a connection's event.Sink as it
// enters and leaves service, so the dispatcher's subscriber set always
// matches the live connection set.
func (s *hkServer) onConnState(conn net.Conn, state http.ConnState) {
	sink, ok := netio.Sink(conn)
	if !ok {
		return
	}
	switch state {
	case http.StateNew:
		s.dispatcher.Register(sink)
	case http.StateClosed, http.StateHijacked:
		s.dispatcher.Unregister(sink)
	}
}

// setupEndpoints wires netio/pair and netio/controller onto the mux, one
// handler per HAP route.
func (s *hkServer) setupEndpoints(setupCode string) {
	containerController := controller.NewContainerController(s.container)
	characteristicController := controller.NewCharacteristicController(s.container, s.dispatcher)
	controller.WireChangeNotifications(s.container, s.dispatcher)

	setupCfg := pair.SetupConfig{
		SetupCode:       setupCode,
		Pairings:        s.pairings,
		Keys:            s.keys,
		OnPairingChange: s.onPairingChange,
	}
	verifyCfg := func() pair.VerifyConfig {
		id, _ := s.keys.AccessoryID()
		sk, pk, _ := s.keys.AccessoryKeyPair()
		return pair.VerifyConfig{
			AccessoryID:   id,
			AccessoryKeys: pair.AccessoryKeys{Secret: sk, Public: pk},
			Pairings:      s.pairings,
		}
	}()
	pairingsCfg := pair.PairingsConfig{
		Pairings:                   s.pairings,
		CloseSessionsWithPairingID: func(id int) { s.hapLn.CloseSessionsWithPairingID(id) },
		Restart:                    s.restart,
		OnPairingChange:            s.onPairingChange,
	}

	s.mux.Handle("/pair-setup", endpoint.NewPairSetup(setupCfg, func(except *netio.Session) bool {
		return s.hapLn.AnySessionPairing(except)
	}))
	s.mux.Handle("/pair-verify", endpoint.NewPairVerify(verifyCfg))
	s.mux.Handle("/accessories", endpoint.NewAccessories(containerController))
	s.mux.Handle("/characteristics", endpoint.NewCharacteristics(characteristicController))
	s.mux.Handle("/pairings", endpoint.NewPairing(pairingsCfg))
	s.mux.Handle("/identify", endpoint.NewIdentify(containerController, s.pairings.IsPaired))
}
