// Package mux implements the mux discovery variant: devices are announced
// over a "discovery-control" mux channel instead of a TCP push (spec §4.4
// reserved channel ids: "discovery-control, backend-control,
// per-device-data channels").
package mux

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/controller"
	"github.com/arsdkgo/arsdkctrl/pkg/discovery"
	arsmux "github.com/arsdkgo/arsdkctrl/pkg/mux"
)

const discoveryControlChannel = "discovery-control"

// announcement mirrors the net discovery variant's JSON fields, carried as
// a mux frame instead of a TCP push.
type announcement struct {
	DeviceType string `json:"device_type"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	DevicePort int    `json:"device_port"`
}

// Discovery watches a Conn's discovery-control channel for announcements.
type Discovery struct {
	*controller.Discovery
	tracker *discovery.Tracker
	ch      arsmux.Channel
	cancel  context.CancelFunc
}

// Start begins watching conn for announcements, registering the discovery
// with ctrl under backend b.
func Start(ctrl *controller.Controller, b controller.Backend, conn arsmux.Conn) (*Discovery, error) {
	ch, err := conn.OpenChannel(discoveryControlChannel)
	if err != nil {
		return nil, arsdk.Wrap(arsdk.KindIOFailed, "open discovery-control channel", err)
	}
	cd := &controller.Discovery{Name: "discovery-mux", Backend: b}
	if err := ctrl.RegisterDiscovery(cd); err != nil {
		ch.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Discovery{
		Discovery: cd,
		tracker:   discovery.NewTracker(ctrl.Loop(), ctrl, cd),
		ch:        ch,
		cancel:    cancel,
	}
	go d.watchLoop(ctx, conn.RemoteID())
	return d, nil
}

func (d *Discovery) watchLoop(ctx context.Context, remoteAddr string) {
	for {
		frame, err := d.ch.Recv(ctx)
		if err != nil {
			return
		}
		var ann announcement
		if err := json.Unmarshal(frame, &ann); err != nil {
			continue
		}
		dt, err := strconv.ParseUint(ann.DeviceType, 16, 16)
		if err != nil {
			continue
		}
		d.tracker.Seen(controller.DeviceInfo{
			DeviceType: arsdk.DeviceType(dt),
			Name:       ann.DeviceName,
			Address:    remoteAddr,
			Port:       ann.DevicePort,
			ID:         ann.DeviceID,
		})
	}
}

// Stop halts the watch loop and the quiescence tracker. On a mux channel
// reset, the backend is expected to call Start again on the fresh Conn
// (spec §4.4 "Reconnection on channel reset"); this method only tears down
// the current watch.
func (d *Discovery) Stop() {
	d.cancel()
	d.tracker.Stop()
	d.ch.Close()
}
