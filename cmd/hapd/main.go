// Command hapd runs a single HAP accessory: a switch whose On
// characteristic toggles a line printed to stderr, standing in for real
// hardware. It exists to exercise hap.NewIPTransport end to end the way
// a real device's main package would.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hapcore/hap"
	"github.com/hapcore/hap/characteristic"
	"github.com/hapcore/hap/log"
	"github.com/hapcore/hap/service"
)

func main() {
	name := flag.String("name", "Switch", "accessory name advertised over mDNS")
	pin := flag.String("pin", hap.DefaultSetupCode, "HAP setup code, format XXX-XX-XXX")
	port := flag.String("port", "", "TCP port to listen on (random if empty)")
	storage := flag.String("storage", "", "pairing database path (defaults to <name>.json)")
	flag.Parse()

	sw, on := service.NewSwitch()
	on.OnChange(func(_ *characteristic.Characteristic, _, nv characteristic.Value, _ interface{}) {
		state := "off"
		if nv.Kind == characteristic.KindBool && nv.B {
			state = "on"
		}
		log.Info.Printf("hapd: switch turned %s", state)
	})

	transport, err := hap.NewIPTransport(hap.Config{
		StoragePath:  *storage,
		Port:         *port,
		Pin:          *pin,
		Category:     hap.CategorySwitch,
		ConfigNumber: 1,
		IdentifyFunc: func(context.Context) error {
			log.Info.Println("hapd: identify requested")
			return nil
		},
	}, *name, "hapcore", "hapd", "000-000-001", "1.0", sw)
	if err != nil {
		log.Info.Fatal(err)
	}

	if ip, err := hap.GetFirstLocalIPAddr(); err == nil {
		log.Info.Printf("hapd: reachable at %s", ip)
	}

	go func() {
		if err := transport.Start(); err != nil {
			log.Info.Fatal(err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info.Println("hapd: shutting down")
	transport.Stop()
}
