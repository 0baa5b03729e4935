package hap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"

	"github.com/hapcore/hap/accessory"
	"github.com/hapcore/hap/characteristic"
	"github.com/hapcore/hap/db"
	"github.com/hapcore/hap/event"
	"github.com/hapcore/hap/log"
	"github.com/hapcore/hap/server"
	"github.com/hapcore/hap/service"
)

// Category is the mDNS `ci` accessory-category code.
type Category int

const (
	CategoryOther      Category = 1
	CategorySwitch     Category = 8
	CategorySensor     Category = 10
)

// Config provides basic configuration for an IP transport: the fields
// every accessory needs (storage, port, setup code, category) plus the
// hooks this module's domain stack needs (identify, pairing-change).
type Config struct {
	// StoragePath holds the pairing database file. When empty, the
	// transport stores it inside a file named exactly like the
	// accessory, in the current working directory.
	StoragePath string

	// Port the transport listens on. When empty, a random port is used.
	Port string

	// Pin is the HAP setup code shown to the user, "XXX-XX-XXX". When
	// empty, DefaultSetupCode is used.
	Pin string

	// Category is the mDNS accessory-category TXT record.
	Category Category

	// ConfigNumber increments whenever the accessory's definition
	// changes, surfaced as mDNS's `c#` TXT record.
	ConfigNumber int

	// SetupID seeds the optional `sh` TXT record; left empty to omit it.
	SetupID string

	// IdentifyFunc runs when POST /identify is called before any
	// pairing exists.
	IdentifyFunc func(context.Context) error

	setupCode string // Pin as validated by NewPin in NewIPTransport
}

type ipTransport struct {
	config Config

	pairings   *db.FileStore
	container  *accessory.Container
	dispatcher *event.Dispatcher

	name   string
	server server.Server
	mdns   *MDNSService
}

// NewIPTransport creates a transport for a single accessory built from
// name/manufacturer/model/serial/firmware, with svcs appended after the
// mandatory AccessoryInformation service.
func NewIPTransport(config Config, name, manufacturer, model, serial, firmware string, svcs ...*service.Service) (Transport, error) {
	if name == "" {
		return nil, errors.New("hap: accessory name must not be empty")
	}

	if config.Pin == "" {
		config.Pin = DefaultSetupCode
	}
	setupCode, err := NewPin(config.Pin)
	if err != nil {
		return nil, err
	}

	storagePath := config.StoragePath
	if storagePath == "" {
		storagePath = filepath.Join(".", name+".json")
	}
	pairings, err := db.NewFileStore(storagePath)
	if err != nil {
		return nil, fmt.Errorf("hap: open pairing store: %w", err)
	}

	var identifyHook characteristic.SetFunc
	if config.IdentifyFunc != nil {
		identifyHook = func(characteristic.Value) error {
			return config.IdentifyFunc(context.Background())
		}
	}

	info := service.NewAccessoryInformation(name, manufacturer, model, serial, firmware, identifyHook)
	acc := accessory.New(info)
	for _, s := range svcs {
		acc.AddService(s)
	}
	container, err := accessory.NewContainer(acc)
	if err != nil {
		return nil, err
	}

	dispatcher := event.NewDispatcher(eventJSONEncoder, event.FlushPeriod)

	config.setupCode = setupCode
	t := &ipTransport{
		config:     config,
		pairings:   pairings,
		container:  container,
		dispatcher: dispatcher,
		name:       name,
	}
	return t, nil
}

func (t *ipTransport) Start() error {
	go t.dispatcher.Run()

	srv := server.NewServer(server.Config{
		Port:            t.config.Port,
		SetupCode:       t.config.setupCode,
		Container:       t.container,
		Pairings:        t.pairings,
		Keys:            t.pairings,
		Dispatcher:      t.dispatcher,
		OnPairingChange: t.onPairingChange,
		Restart:         t.onLastAdminRemoved,
	})
	t.server = srv

	accessoryID, err := t.pairings.AccessoryID()
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(srv.Port())
	if err != nil {
		return err
	}

	mdns := NewMDNSService(t.name, accessoryID, int(t.config.Category), t.config.ConfigNumber, port, t.config.SetupID)
	mdns.SetPaired(t.pairings.IsPaired())
	t.mdns = mdns
	mdns.Publish()

	log.Info.Printf("hap: %s listening on port %s, setup code %s", t.name, srv.Port(), t.config.Pin)
	return srv.ListenAndServe()
}

func (t *ipTransport) Stop() {
	if t.mdns != nil {
		t.mdns.Stop()
	}
	if t.server != nil {
		t.server.Stop()
	}
	t.dispatcher.Stop()
}

// onPairingChange flips mDNS's `sf` flag on every pairing-state
// transition.
func (t *ipTransport) onPairingChange() {
	if t.mdns != nil {
		t.mdns.SetPaired(t.pairings.IsPaired())
	}
}

// onLastAdminRemoved restarts the accessory to an unpaired state when
// RemovePairing deletes the last admin pairing. A real restart would
// exec or be supervised externally; this module logs the event and
// re-publishes mDNS as unpaired, leaving the process running so a
// demonstration binary does not need a supervisor to observe the
// transition.
func (t *ipTransport) onLastAdminRemoved() {
	log.Info.Println("hap: last admin pairing removed, accessory is unpaired")
	t.onPairingChange()
}

// eventJSONEncoder builds the `EVENT/1.0 200 OK` pseudo-response: a
// chunked `application/hap+json` body carrying the flushed
// characteristic changes.
func eventJSONEncoder(changes []event.Change) ([]byte, error) {
	type item struct {
		AID   uint64      `json:"aid"`
		IID   uint64      `json:"iid"`
		Value interface{} `json:"value"`
	}
	type body struct {
		Characteristics []item `json:"characteristics"`
	}

	var b body
	for _, c := range changes {
		jv, err := c.Value.JSON()
		if err != nil {
			return nil, err
		}
		b.Characteristics = append(b.Characteristics, item{AID: c.AID, IID: c.IID, Value: jv})
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}

	head := "EVENT/1.0 200 OK\r\nContent-Type: application/hap+json\r\nTransfer-Encoding: chunked\r\n\r\n"
	chunk := fmt.Sprintf("%x\r\n%s\r\n0\r\n\r\n", len(payload), payload)
	return []byte(head + chunk), nil
}

// GetFirstLocalIPAddr returns the first non-loopback IPv4 address of the
// local machine, used by cmd/hapd to log a reachable address for the
// operator.
func GetFirstLocalIPAddr() (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, errors.New("hap: could not determine local ip address")
}
