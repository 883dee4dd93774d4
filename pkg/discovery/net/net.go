// Package net implements the net discovery variant (spec §6 "Discovery
// (net)"): a device pushes a single JSON object over a short-lived TCP
// connection it initiates to the controller, carrying {device_type,
// device_id, device_name, device_port}. It's grounded on the teacher's
// chatgear.Listener, which accepts inbound per-device connections and
// turns each into a controller-visible event the same way.
package net

import (
	"encoding/json"
	"net"
	"strconv"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/controller"
	"github.com/arsdkgo/arsdkctrl/pkg/discovery"
)

// announcement is the JSON object a device pushes (spec §6).
type announcement struct {
	DeviceType string `json:"device_type"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	DevicePort int    `json:"device_port"`
}

// Discovery listens for device announcements on a TCP port.
type Discovery struct {
	*controller.Discovery
	tracker *discovery.Tracker
	ln      net.Listener
}

// Listen starts a net Discovery bound to addr (e.g. ":44444"), registering
// it with ctrl under backend b.
func Listen(ctrl *controller.Controller, b controller.Backend, addr string) (*Discovery, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, arsdk.Wrap(arsdk.KindIOFailed, "discovery net listen", err)
	}
	cd := &controller.Discovery{Name: "discovery-net", Backend: b}
	if err := ctrl.RegisterDiscovery(cd); err != nil {
		ln.Close()
		return nil, err
	}
	d := &Discovery{
		Discovery: cd,
		tracker:   discovery.NewTracker(ctrl.Loop(), ctrl, cd),
		ln:        ln,
	}
	go d.acceptLoop()
	return d, nil
}

func (d *Discovery) acceptLoop() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		go d.handleAnnouncement(conn)
	}
}

func (d *Discovery) handleAnnouncement(conn net.Conn) {
	defer conn.Close()

	var ann announcement
	if err := json.NewDecoder(conn).Decode(&ann); err != nil {
		return
	}

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	dt, err := strconv.ParseUint(ann.DeviceType, 16, 16)
	if err != nil {
		return
	}

	d.tracker.Seen(controller.DeviceInfo{
		DeviceType: arsdk.DeviceType(dt),
		Name:       ann.DeviceName,
		Address:    host,
		Port:       ann.DevicePort,
		ID:         ann.DeviceID,
	})
}

// Stop closes the listener and the quiescence tracker.
func (d *Discovery) Stop() error {
	d.tracker.Stop()
	return d.ln.Close()
}
