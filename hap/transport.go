// Package hap wires the netio/db/event/accessory packages to a real TCP
// listener and an mDNS advertiser, giving a caller one entry point
// (NewIPTransport) to run a complete accessory.
package hap

// Transport starts and stops one accessory's HAP front end: the TCP
// listener/HTTP server and the mDNS advertisement.
type Transport interface {
	Start() error
	Stop()
}
