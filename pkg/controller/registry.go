package controller

import (
	"context"
	"encoding/json"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/jsontime"
	"github.com/arsdkgo/arsdkctrl/pkg/kv"
)

// DeviceRecord is a Registry's persisted view of one previously-seen
// device, independent of any live Device's in-memory Handle.
type DeviceRecord struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	DeviceType arsdk.DeviceType `json:"device_type"`
	Address    string           `json:"address"`
	Port       int              `json:"port"`
	LastSeen   jsontime.Unix    `json:"last_seen"`
}

// Registry persists known devices across controller restarts, keyed by
// device ID (spec §4.1 "optional persisted device registry"). Backed by
// pkg/kv so the same store a caller already opens for itf/updater or
// itf/ephemeris caching can hold this too.
type Registry struct {
	store kv.Store
}

// NewRegistry wraps store for device bookkeeping. store is never closed
// by Registry; the caller owns its lifetime.
func NewRegistry(store kv.Store) *Registry {
	return &Registry{store: store}
}

func registryKey(id string) kv.Key {
	return kv.Key{"device", id}
}

// RecordSeen upserts dev's current identity and address, timestamped now.
// Wire this into Controller.SetDeviceCallbacks's added callback to persist
// every device a Discovery reports.
func (r *Registry) RecordSeen(ctx context.Context, dev *Device) error {
	rec := DeviceRecord{
		ID:         dev.ID,
		Name:       dev.Name,
		DeviceType: dev.DeviceType,
		Address:    dev.Address,
		Port:       dev.Port,
		LastSeen:   jsontime.NowEpoch(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, registryKey(dev.ID), payload)
}

// Get returns the persisted record for id, or kv.ErrNotFound if it was
// never seen (or has since been forgotten).
func (r *Registry) Get(ctx context.Context, id string) (DeviceRecord, error) {
	b, err := r.store.Get(ctx, registryKey(id))
	if err != nil {
		return DeviceRecord{}, err
	}
	var rec DeviceRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return DeviceRecord{}, err
	}
	return rec, nil
}

// List returns every persisted device record in the order the underlying
// Store lists them (lexicographic by encoded key, so by device id).
// Records that fail to decode are skipped.
func (r *Registry) List(ctx context.Context) ([]DeviceRecord, error) {
	var recs []DeviceRecord
	for entry, err := range r.store.List(ctx, kv.Key{"device"}) {
		if err != nil {
			return nil, err
		}
		var rec DeviceRecord
		if jerr := json.Unmarshal(entry.Value, &rec); jerr != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Forget removes id's persisted record. Wire this into the removed
// callback if a vanished device should drop out of the registry
// immediately rather than just going stale.
func (r *Registry) Forget(ctx context.Context, id string) error {
	return r.store.Delete(ctx, registryKey(id))
}
