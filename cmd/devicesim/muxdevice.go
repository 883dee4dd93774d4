package main

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"strconv"

	muxbackend "github.com/arsdkgo/arsdkctrl/pkg/backend/mux"
	arsmux "github.com/arsdkgo/arsdkctrl/pkg/mux"
)

const discoveryControlChannel = "discovery-control"

// startMuxListener runs this device's own mux broker on addr (spec §4.4:
// devicesim stands in for the device end of the mux link the listener
// docs describe), accepting controller connections and, per connection,
// pushing a discovery-control announcement, answering the backend-control
// connection-request, echoing frames on the per-device data channel, and
// serving tcp-proxy requests against the embedded FTP sim server.
func (d *simDevice) startMuxListener(addr string) (func(), error) {
	l, err := arsmux.Listen(arsmux.ListenConfig{Network: "tcp", Addr: addr})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			conn, err := l.Accept(ctx)
			if err != nil {
				return
			}
			go d.serveMuxConn(ctx, conn)
		}
	}()
	return func() { cancel(); l.Close() }, nil
}

func (d *simDevice) serveMuxConn(ctx context.Context, conn arsmux.Conn) {
	log.Printf("mux: controller %s connected", conn.RemoteID())

	if err := d.pushDiscoveryAnnouncement(ctx, conn); err != nil {
		log.Printf("mux: discovery-control push: %v", err)
	}

	go d.serveTCPProxy(ctx, conn)

	req, err := muxbackend.ServeBackendControl(ctx, conn, func(req muxbackend.ConnRequest) muxbackend.ConnResponse {
		log.Printf("mux: connection-request from %s/%s", req.ControllerName, req.ControllerType)
		return muxbackend.ConnResponse{Status: 0}
	})
	if err != nil {
		log.Printf("mux: backend-control: %v", err)
		return
	}

	data, err := conn.OpenChannel(muxbackend.DeviceDataChannelName(req.DeviceID))
	if err != nil {
		log.Printf("mux: open device data channel: %v", err)
		return
	}
	defer data.Close()

	tx := muxbackend.NewChannelTransport(data)
	for {
		f, err := tx.Recv(ctx)
		if err != nil {
			return
		}
		if err := tx.Send(ctx, f); err != nil {
			return
		}
	}
}

func (d *simDevice) pushDiscoveryAnnouncement(ctx context.Context, conn arsmux.Conn) error {
	ch, err := conn.OpenChannel(discoveryControlChannel)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(d.announcement(0))
	if err != nil {
		return err
	}
	return ch.Send(ctx, payload)
}

// serveTCPProxy answers tcp-proxy open requests by dialing the embedded
// FTP sim server regardless of the requested host/port (devicesim only
// hosts one real TCP service).
func (d *simDevice) serveTCPProxy(ctx context.Context, conn arsmux.Conn) {
	err := arsmux.ServeTCPProxyRequests(ctx, conn, func(host string, port int) (net.Conn, error) {
		return net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(d.ftpPort)))
	})
	if err != nil && ctx.Err() == nil {
		log.Printf("mux: serve tcp-proxy: %v", err)
	}
}
