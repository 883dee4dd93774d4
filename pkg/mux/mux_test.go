package mux

import (
	"context"
	"testing"
	"time"
)

func TestPipeChannelRoundTrip(t *testing.T) {
	a, b := NewPipe("controller", "device-1")
	defer a.Close()
	defer b.Close()

	ca, err := a.OpenChannel("ctrl")
	if err != nil {
		t.Fatalf("a.OpenChannel: %v", err)
	}
	cb, err := b.OpenChannel("ctrl")
	if err != nil {
		t.Fatalf("b.OpenChannel: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := ca.Send(ctx, []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	frame, err := cb.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(frame) != "hello" {
		t.Fatalf("got %q, want %q", frame, "hello")
	}

	if err := cb.Send(ctx, []byte("world")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	frame, err = ca.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(frame) != "world" {
		t.Fatalf("got %q, want %q", frame, "world")
	}
}

func TestPipeChannelsAreIsolated(t *testing.T) {
	a, b := NewPipe("controller", "device-1")
	defer a.Close()
	defer b.Close()

	actrl, _ := a.OpenChannel("ctrl")
	_, _ = a.OpenChannel("data")
	bctrl, _ := b.OpenChannel("ctrl")
	bdata, _ := b.OpenChannel("data")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := actrl.Send(ctx, []byte("on-ctrl")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()
	if _, err := bdata.Recv(shortCtx); err == nil {
		t.Fatalf("expected data channel to be empty, got a frame")
	}

	frame, err := bctrl.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv on ctrl: %v", err)
	}
	if string(frame) != "on-ctrl" {
		t.Fatalf("got %q, want %q", frame, "on-ctrl")
	}
}

func TestRemoteID(t *testing.T) {
	a, b := NewPipe("controller", "device-1")
	defer a.Close()
	defer b.Close()

	if a.RemoteID() != "device-1" {
		t.Fatalf("a.RemoteID() = %q, want %q", a.RemoteID(), "device-1")
	}
	if b.RemoteID() != "controller" {
		t.Fatalf("b.RemoteID() = %q, want %q", b.RemoteID(), "controller")
	}
}
