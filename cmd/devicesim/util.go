package main

import (
	stdnet "net"
	"strconv"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
)

// simDevice holds the identity devicesim announces and answers handshakes
// with; it has no behavior of its own beyond what netdevice.go/muxdevice.go
// hang off it.
type simDevice struct {
	name     string
	deviceID string
	devType  arsdk.DeviceType
	ftpPort  int
}

func splitHostPortOrEmpty(addr string) (host, port string, ok bool) {
	h, p, err := stdnet.SplitHostPort(addr)
	if err != nil {
		return "", "", false
	}
	return h, p, true
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
