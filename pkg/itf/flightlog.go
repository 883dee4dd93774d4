package itf

import (
	"strings"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
	"github.com/arsdkgo/arsdkctrl/pkg/storage"
)

// flightLogRemoteDir mirrors arsdk_flight_log_itf.c's fixed remote path.
const flightLogRemoteDir = "/internal_000/flightlog"

func isFlightLog(name string) bool {
	return strings.HasSuffix(name, ".bin") || strings.HasSuffix(name, ".gz")
}

// StartFlightLogFetch downloads every flight log from the device into
// localDir, deleting each one from the device after a successful download
// (spec §4.6 "flight log"). mirror, if non-nil, additionally archives each
// log (e.g. to S3 via pkg/storage).
func StartFlightLogFetch(pool *ftp.Pool, addr string, port int, localDir string, devType arsdk.DeviceType,
	mirror storage.FileStore, onProgress ProgressFunc, onComplete CompleteFunc) *FetchRequest {
	return StartFetch(FetchConfig{
		Pool:         pool,
		Addr:         addr,
		Port:         port,
		RemoteDir:    flightLogRemoteDir,
		LocalDir:     localDir,
		DeviceType:   devType,
		Match:        isFlightLog,
		DeleteRemote: true,
		Mirror:       mirror,
	}, onProgress, onComplete)
}
