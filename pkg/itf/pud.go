package itf

import (
	"strings"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
	"github.com/arsdkgo/arsdkctrl/pkg/storage"
)

// pudRemoteDir mirrors arsdk_pud_itf.c's fixed remote path ("run data").
const pudRemoteDir = "/internal_000/pud"

func isPud(name string) bool {
	return strings.HasSuffix(name, ".pud")
}

// StartPudFetch downloads every PUD (run data) file from the device into
// localDir (spec §4.6 "pud"). Unlike crashml/flightlog, pud files are left
// on the device after download (matches arsdk_pud_itf.c's behavior).
// mirror, if non-nil, additionally archives each file (e.g. to S3 via
// pkg/storage).
func StartPudFetch(pool *ftp.Pool, addr string, port int, localDir string, devType arsdk.DeviceType,
	mirror storage.FileStore, onProgress ProgressFunc, onComplete CompleteFunc) *FetchRequest {
	return StartFetch(FetchConfig{
		Pool:       pool,
		Addr:       addr,
		Port:       port,
		RemoteDir:  pudRemoteDir,
		LocalDir:   localDir,
		DeviceType: devType,
		Match:      isPud,
		Mirror:     mirror,
	}, onProgress, onComplete)
}
