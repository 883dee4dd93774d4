package itf

import (
	"strings"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
	"github.com/arsdkgo/arsdkctrl/pkg/storage"
)

// crashmlRemoteDir is where device firmware deposits crash reports,
// matching arsdk_crashml_itf.c's fixed remote path.
const crashmlRemoteDir = "/internal_000/crashml"

// CrashmlType is the bitmask of report shapes to fetch (spec §4.6; mirrors
// arsdk_crashml_type's DIR/TARGZ bits).
type CrashmlType int

const (
	CrashmlTypeDir CrashmlType = 1 << iota
	CrashmlTypeTargz
)

func (t CrashmlType) matches(name string) bool {
	isTargz := strings.HasSuffix(name, ".tar.gz")
	if isTargz {
		return t&CrashmlTypeTargz != 0
	}
	return t&CrashmlTypeDir != 0
}

// StartCrashmlFetch downloads every crash report matching types from the
// device's crashml directory into localDir, deleting each one from the
// device after a successful download (spec §4.6 "crashml"). mirror, if
// non-nil, additionally archives each report (e.g. to S3 via pkg/storage).
func StartCrashmlFetch(pool *ftp.Pool, addr string, port int, localDir string, devType arsdk.DeviceType,
	types CrashmlType, mirror storage.FileStore, onProgress ProgressFunc, onComplete CompleteFunc) *FetchRequest {
	return StartFetch(FetchConfig{
		Pool:         pool,
		Addr:         addr,
		Port:         port,
		RemoteDir:    crashmlRemoteDir,
		LocalDir:     localDir,
		DeviceType:   devType,
		Match:        types.matches,
		DeleteRemote: true,
		Mirror:       mirror,
	}, onProgress, onComplete)
}
