package controller

import (
	"context"
	"testing"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/kv"
)

func TestRegistryRecordSeenAndGet(t *testing.T) {
	reg := NewRegistry(kv.NewMemory(nil))
	ctx := context.Background()

	dev := &Device{ID: "dev-1", Name: "drone-1", DeviceType: arsdk.DeviceTypeDrone, Address: "192.168.42.1", Port: 44444}
	if err := reg.RecordSeen(ctx, dev); err != nil {
		t.Fatalf("RecordSeen: %v", err)
	}

	rec, err := reg.Get(ctx, "dev-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Name != "drone-1" || rec.Address != "192.168.42.1" || rec.Port != 44444 {
		t.Fatalf("rec = %+v", rec)
	}
	if rec.LastSeen.IsZero() {
		t.Fatal("LastSeen should be set")
	}
}

func TestRegistryListAndForget(t *testing.T) {
	reg := NewRegistry(kv.NewMemory(nil))
	ctx := context.Background()

	reg.RecordSeen(ctx, &Device{ID: "dev-1", Name: "drone-1", DeviceType: arsdk.DeviceTypeDrone})
	reg.RecordSeen(ctx, &Device{ID: "dev-2", Name: "skyctrl-1", DeviceType: arsdk.DeviceTypeSkyCtrl})

	recs, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("List returned %d records, want 2", len(recs))
	}

	if err := reg.Forget(ctx, "dev-1"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, err := reg.Get(ctx, "dev-1"); err != kv.ErrNotFound {
		t.Fatalf("Get after Forget: err = %v, want ErrNotFound", err)
	}

	recs, err = reg.List(ctx)
	if err != nil {
		t.Fatalf("List after Forget: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "dev-2" {
		t.Fatalf("List after Forget = %+v", recs)
	}
}
