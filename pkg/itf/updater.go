package itf

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
)

// updaterRemotePath mirrors arsdk_updater_itf.c's fixed firmware upload
// destination.
const updaterRemotePath = "/internal_000/update.bin"

// StartFirmwareUpload uploads the firmware image at localPath to the
// device (spec §4.6 "updater").
func StartFirmwareUpload(pool *ftp.Pool, addr string, port int, localPath string, devType arsdk.DeviceType,
	onProgress UploadProgressFunc, onComplete CompleteFunc) *UploadRequest {
	return StartUpload(UploadConfig{
		Pool:       pool,
		Addr:       addr,
		Port:       port,
		LocalPath:  localPath,
		RemotePath: updaterRemotePath,
		DeviceType: devType,
	}, onProgress, onComplete)
}

// FirmwareManifest describes the image StartFirmwareUploadWithManifest is
// about to send, carried as a small sidecar JSON file next to the image
// itself (spec §4.6 "updater compatibility check").
type FirmwareManifest struct {
	AppID   uint32 `json:"app_id"`
	Version string `json:"version"`
	Size    int64  `json:"size"`
}

var firmwareManifestSchema = func() *jsonschema.Resolved {
	s, err := jsonschema.For[FirmwareManifest](nil)
	if err != nil {
		panic(fmt.Sprintf("itf: building firmware manifest schema: %v", err))
	}
	r, err := s.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("itf: resolving firmware manifest schema: %v", err))
	}
	return r
}()

// ReadFirmwareManifest loads and validates the manifest at path against
// FirmwareManifest's schema, refusing anything malformed before a transfer
// is ever attempted.
func ReadFirmwareManifest(path string) (FirmwareManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FirmwareManifest{}, err
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return FirmwareManifest{}, fmt.Errorf("firmware manifest %s: %w", path, err)
	}
	if err := firmwareManifestSchema.Validate(instance); err != nil {
		return FirmwareManifest{}, fmt.Errorf("firmware manifest %s: %w", path, err)
	}
	var m FirmwareManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return FirmwareManifest{}, fmt.Errorf("firmware manifest %s: %w", path, err)
	}
	return m, nil
}

// StartFirmwareUploadWithManifest validates manifestPath against devType
// before starting the upload, refusing firmware built for a different
// device type or a size that doesn't match the local image on disk.
func StartFirmwareUploadWithManifest(pool *ftp.Pool, addr string, port int, localPath, manifestPath string,
	devType arsdk.DeviceType, onProgress UploadProgressFunc, onComplete CompleteFunc) (*UploadRequest, error) {
	m, err := ReadFirmwareManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if want := AppIDToDeviceType(m.AppID); want != devType {
		return nil, fmt.Errorf("firmware manifest %s targets %s, not %s", manifestPath, want, devType)
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, err
	}
	if m.Size != 0 && m.Size != info.Size() {
		return nil, fmt.Errorf("firmware manifest %s declares size %d, local image %s is %d bytes",
			manifestPath, m.Size, localPath, info.Size())
	}
	return StartFirmwareUpload(pool, addr, port, localPath, devType, onProgress, onComplete), nil
}

// appIDDeviceTypes maps a firmware application id to the device type it
// targets (spec §4.6 "updater compatibility check"; mirrors
// arsdk_updater_appid_to_devtype's lookup table, reduced to the two device
// types this module models).
var appIDDeviceTypes = map[uint32]arsdk.DeviceType{
	0x00000001: arsdk.DeviceTypeDrone,
	0x00000002: arsdk.DeviceTypeSkyCtrl,
}

// AppIDToDeviceType resolves a firmware application id to its device type,
// or arsdk.DeviceTypeUnknown if the id isn't recognized.
func AppIDToDeviceType(appID uint32) arsdk.DeviceType {
	if dt, ok := appIDDeviceTypes[appID]; ok {
		return dt
	}
	return arsdk.DeviceTypeUnknown
}
