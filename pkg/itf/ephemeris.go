package itf

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
	"github.com/arsdkgo/arsdkctrl/pkg/kv"
)

// ephemerisRemotePath mirrors arsdk_ephemeris_itf.c's fixed upload
// destination for the GPS ephemeris file.
const ephemerisRemotePath = "/internal_000/ephemeris/ephemeris.bin"

// ephemerisCacheKey namespaces the synced-MD5 cache entry for a device,
// so one kv.Store can be shared across several devices' ephemeris state.
func ephemerisCacheKey(deviceID string) kv.Key {
	return kv.Key{"ephemeris", deviceID, "md5"}
}

// StartEphemerisUpload uploads the GPS ephemeris file at localPath to the
// device (spec §4.6 "ephemeris"). When cache is non-nil, it's consulted
// first: if localPath's MD5 matches the last value synced for deviceID,
// the upload is skipped and onComplete fires immediately with StatusOK
// (spec §4.6 "diff + merge" MD5-compare-then-sync). On a successful
// upload the new MD5 is recorded for next time.
func StartEphemerisUpload(pool *ftp.Pool, addr string, port int, localPath string, devType arsdk.DeviceType,
	cache kv.Store, deviceID string, onProgress UploadProgressFunc, onComplete CompleteFunc) *UploadRequest {
	if cache != nil {
		sum, err := fileMD5(localPath)
		if err == nil {
			if cached, err := cache.Get(context.Background(), ephemerisCacheKey(deviceID)); err == nil && string(cached) == sum {
				req := &UploadRequest{cfg: UploadConfig{Pool: pool, Addr: addr, Port: port, LocalPath: localPath, RemotePath: ephemerisRemotePath, DeviceType: devType}}
				if onComplete != nil {
					onComplete(StatusOK, nil)
				}
				return req
			}
		}
	}

	wrapped := onComplete
	if cache != nil {
		wrapped = func(status Status, err error) {
			if status == StatusOK {
				if sum, mderr := fileMD5(localPath); mderr == nil {
					cache.Set(context.Background(), ephemerisCacheKey(deviceID), []byte(sum))
				}
			}
			if onComplete != nil {
				onComplete(status, err)
			}
		}
	}

	return StartUpload(UploadConfig{
		Pool:       pool,
		Addr:       addr,
		Port:       port,
		LocalPath:  localPath,
		RemotePath: ephemerisRemotePath,
		DeviceType: devType,
	}, onProgress, wrapped)
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
