package hap

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"github.com/hapcore/hap/log"
)

// Advertiser is the mDNS/Bonjour contract of a
// "_hap._tcp" service instance whose TXT records this module must keep
// in sync with pairing state, most importantly flipping `sf` on every
// pairing transition.
type Advertiser interface {
	// Publish announces the service for the first time.
	Publish()
	// Update re-announces the service after a TXT record change.
	Update()
	// Stop withdraws the announcement.
	Stop()
	// SetPaired flips the `sf` ("status flags") TXT record: 1 when
	// unpaired, 0 once paired.
	SetPaired(paired bool)
}

// MDNSService is the local Advertiser implementation this module ships:
// it maintains the TXT record map and logs every publish/update/stop
// rather than running a real mDNS responder. A real deployment would
// substitute a responder library such as hashicorp/mdns or
// grandcat/zeroconf behind this same interface.
type MDNSService struct {
	instanceName string
	accessoryID  string
	category     int
	configNumber int
	port         int

	setupID string
	txt     map[string]string
}

// NewMDNSService builds the TXT record set for one accessory, per
// field list.
func NewMDNSService(instanceName, accessoryID string, category, configNumber, port int, setupID string) *MDNSService {
	m := &MDNSService{
		instanceName: instanceName,
		accessoryID:  accessoryID,
		category:     category,
		configNumber: configNumber,
		port:         port,
		setupID:      setupID,
	}
	m.txt = map[string]string{
		"md": instanceName,
		"pv": "1.0",
		"id": accessoryID,
		"c#": fmt.Sprintf("%d", configNumber),
		"s#": "1",
		"ff": "0",
		"sf": "1",
		"ci": fmt.Sprintf("%d", category),
	}
	if setupID != "" {
		m.txt["sh"] = setupHash(setupID, accessoryID)
	}
	return m
}

// setupHash computes base64(first 4 bytes of SHA-512(setupId||accessory_id)),
// the value of the optional `sh` TXT record.
func setupHash(setupID, accessoryID string) string {
	sum := sha512.Sum512([]byte(setupID + accessoryID))
	return base64.StdEncoding.EncodeToString(sum[:4])
}

func (m *MDNSService) Publish() {
	log.Info.Printf("mdns: publish %s._hap._tcp port=%d txt=%v", m.instanceName, m.port, m.txt)
}

func (m *MDNSService) Update() {
	log.Info.Printf("mdns: update %s._hap._tcp txt=%v", m.instanceName, m.txt)
}

func (m *MDNSService) Stop() {
	log.Info.Printf("mdns: stop %s._hap._tcp", m.instanceName)
}

// SetPaired flips `sf`"must be updated on every
// transition of pair state") and re-announces.
func (m *MDNSService) SetPaired(paired bool) {
	if paired {
		m.txt["sf"] = "0"
	} else {
		m.txt["sf"] = "1"
	}
	m.Update()
}

var _ Advertiser = (*MDNSService)(nil)
