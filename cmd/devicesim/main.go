// devicesim stands in for a real device across every backend/discovery
// variant this module implements, so the controller side can be exercised
// end to end without real hardware. It's grounded on the teacher's
// cmd/chatgear-test-server: a single flat flag-configured daemon, not a
// cobra command tree, since it has exactly one job (pretend to be a
// device) rather than a family of operator subcommands.
//
// Usage:
//
//	devicesim -net-handshake :43210 -net-discovery 127.0.0.1:44444
//	devicesim -mux-listen :1883 -device-type skycontroller
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
)

func main() {
	name := flag.String("name", "devicesim", "device name announced to discovery")
	deviceID := flag.String("device-id", "SIM0001", "device id announced to discovery")
	deviceTypeFlag := flag.String("device-type", "drone", "device type: drone or skycontroller")

	netHandshakeAddr := flag.String("net-handshake", ":43210", "listen address for the net backend's JSON handshake; empty to disable")
	netDiscoveryAddr := flag.String("net-discovery", "", "controller's net-discovery address to push an announcement to; empty to disable")

	avahiGroup := flag.String("avahi", "", "multicast group:port to announce on (e.g. 224.0.0.251:15353); empty to disable")

	muxListenAddr := flag.String("mux-listen", "", "address to run this device's own mux broker on; empty to disable")

	ftpAddr := flag.String("ftp-addr", "127.0.0.1:0", "address for the embedded FTP sim server")
	seedMedia := flag.Int("seed-media", 3, "number of fake media files to pre-populate")

	flag.Parse()

	devType := arsdk.DeviceTypeDrone
	if *deviceTypeFlag == "skycontroller" {
		devType = arsdk.DeviceTypeSkyCtrl
	}

	ftpSrv, err := ftp.NewSimServer(*ftpAddr)
	if err != nil {
		log.Fatalf("ftp sim server: %v", err)
	}
	defer ftpSrv.Close()
	seedFakeMedia(ftpSrv, *seedMedia)
	log.Printf("ftp sim server listening on %s", ftpSrv.Addr())

	dev := &simDevice{
		name:     *name,
		deviceID: *deviceID,
		devType:  devType,
		ftpPort:  ftpSrv.Port(),
	}

	if *netHandshakeAddr != "" {
		ln, err := dev.startNetHandshake(*netHandshakeAddr)
		if err != nil {
			log.Fatalf("net handshake listen: %v", err)
		}
		defer ln.Close()
		log.Printf("net backend handshake listening on %s", *netHandshakeAddr)

		if *netDiscoveryAddr != "" {
			_, portStr, _ := splitHostPortOrEmpty(*netHandshakeAddr)
			port := atoiOrZero(portStr)
			if err := announceNet(*netDiscoveryAddr, dev, port); err != nil {
				log.Printf("net discovery announce: %v", err)
			} else {
				log.Printf("announced to net discovery at %s", *netDiscoveryAddr)
			}
		}
	}

	if *avahiGroup != "" {
		_, portStr, _ := splitHostPortOrEmpty(*netHandshakeAddr)
		port := atoiOrZero(portStr)
		stop, err := startAvahiAnnounce(*avahiGroup, dev, port, 5*time.Second)
		if err != nil {
			log.Printf("avahi announce: %v", err)
		} else {
			defer stop()
			log.Printf("announcing on avahi group %s every 5s", *avahiGroup)
		}
	}

	if *muxListenAddr != "" {
		stop, err := dev.startMuxListener(*muxListenAddr)
		if err != nil {
			log.Fatalf("mux listen: %v", err)
		}
		defer stop()
		log.Printf("mux broker listening on %s", *muxListenAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	fmt.Println("\ndevicesim shutting down")
}

// seedFakeMedia populates the FTP sim server with n placeholder media
// files so `media list`/`media dl` have something to find.
func seedFakeMedia(srv *ftp.SimServer, n int) {
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("/internal_000/media/sim_%03d.jpg", i)
		srv.SetFile(name, []byte(fmt.Sprintf("fake jpeg payload %d", i)))
	}
}
