package net

import (
	"testing"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/controller"
)

func TestTCPProxySameDeviceTypeNoOffset(t *testing.T) {
	b := &Backend{PrimaryDeviceType: arsdk.DeviceTypeDrone}
	dev := &controller.Device{Address: "192.168.42.1", DeviceType: arsdk.DeviceTypeDrone}

	addr, port, err := b.TCPProxy(dev, 21)
	if err != nil {
		t.Fatalf("TCPProxy: %v", err)
	}
	if addr != "192.168.42.1" || port != 21 {
		t.Fatalf("TCPProxy = (%q, %d), want (%q, 21)", addr, port, dev.Address)
	}
}

func TestTCPProxyMismatchedDeviceTypeAddsOffset(t *testing.T) {
	b := &Backend{PrimaryDeviceType: arsdk.DeviceTypeDrone}
	dev := &controller.Device{Address: "192.168.42.1", DeviceType: arsdk.DeviceTypeSkyCtrl}

	_, port, err := b.TCPProxy(dev, 21)
	if err != nil {
		t.Fatalf("TCPProxy: %v", err)
	}
	if port != 121 {
		t.Fatalf("port = %d, want 121", port)
	}
}

func TestTCPProxyControllerBackendNeverOffsets(t *testing.T) {
	b := &Backend{PrimaryDeviceType: arsdk.DeviceTypeDrone, IsController: true}
	dev := &controller.Device{Address: "192.168.42.1", DeviceType: arsdk.DeviceTypeSkyCtrl}

	_, port, err := b.TCPProxy(dev, 21)
	if err != nil {
		t.Fatalf("TCPProxy: %v", err)
	}
	if port != 21 {
		t.Fatalf("port = %d, want 21 (controller backends never offset)", port)
	}
}
