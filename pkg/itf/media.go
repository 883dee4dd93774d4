package itf

import (
	"strings"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
	"github.com/arsdkgo/arsdkctrl/pkg/storage"
)

// mediaRemoteDir mirrors arsdk_media_itf.c's MEDIA_FLD constant.
const mediaRemoteDir = "/internal_000/media"

var mediaExtensions = []string{".jpg", ".jpeg", ".mp4", ".dng"}

func isMediaResource(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// StartMediaFetch downloads every photo/video resource from the device's
// media directory into localDir (spec §4.6 "media"). Resources are left on
// the device; deletion is a separate, explicit per-file operation callers
// drive with ftp.Delete once they've confirmed the local copy. mirror, if
// non-nil, additionally archives each downloaded file (e.g. to S3 via
// pkg/storage) alongside the local copy.
func StartMediaFetch(pool *ftp.Pool, addr string, port int, localDir string, devType arsdk.DeviceType,
	mirror storage.FileStore, onProgress ProgressFunc, onComplete CompleteFunc) *FetchRequest {
	return StartFetch(FetchConfig{
		Pool:       pool,
		Addr:       addr,
		Port:       port,
		RemoteDir:  mediaRemoteDir,
		LocalDir:   localDir,
		DeviceType: devType,
		Match:      isMediaResource,
		Mirror:     mirror,
	}, onProgress, onComplete)
}
