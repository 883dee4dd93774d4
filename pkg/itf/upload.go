package itf

import (
	"io"
	"os"
	"sync"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
)

// UploadProgressFunc reports percent completion of a single-file upload
// (spec §4.6; mirrors arsdk_updater_req_upload_cbs/arsdk_ephemeris_req_
// upload_cbs's float percent progress callback).
type UploadProgressFunc func(percent float32)

// UploadConfig parameterizes a single-file upload over FTP.
type UploadConfig struct {
	Pool       *ftp.Pool
	Addr       string
	Port       int
	LocalPath  string
	RemotePath string
	DeviceType arsdk.DeviceType
}

// UploadRequest is a running or finished single-file upload (firmware via
// updater, GPS ephemeris via ephemeris — both the same shape in the
// original implementation).
type UploadRequest struct {
	cfg UploadConfig

	mu       sync.Mutex
	canceled bool
}

// DevType returns the device type this request targets.
func (r *UploadRequest) DevType() arsdk.DeviceType { return r.cfg.DeviceType }

// LocalPath returns the local file path being uploaded.
func (r *UploadRequest) LocalPath() string { return r.cfg.LocalPath }

// Cancel marks the request canceled; the in-flight chunk finishes, then
// the upload aborts and reports StatusCanceled.
func (r *UploadRequest) Cancel() {
	r.mu.Lock()
	r.canceled = true
	r.mu.Unlock()
}

func (r *UploadRequest) isCanceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

// StartUpload uploads cfg.LocalPath to cfg.RemotePath, reporting percent
// progress and a final completion, on its own goroutine.
func StartUpload(cfg UploadConfig, onProgress UploadProgressFunc, onComplete CompleteFunc) *UploadRequest {
	req := &UploadRequest{cfg: cfg}
	go req.run(onProgress, onComplete)
	return req
}

func (r *UploadRequest) run(onProgress UploadProgressFunc, onComplete CompleteFunc) {
	f, err := os.Open(r.cfg.LocalPath)
	if err != nil {
		if onComplete != nil {
			onComplete(StatusFailed, err)
		}
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		if onComplete != nil {
			onComplete(StatusFailed, err)
		}
		return
	}
	total := info.Size()

	reporter := &cancelableReader{r: f, req: r}
	err = ftp.Put(r.cfg.Pool, r.cfg.Addr, r.cfg.Port, r.cfg.RemotePath, reporter, total, false,
		func(transferred int64) {
			if onProgress != nil && total > 0 {
				onProgress(float32(transferred) / float32(total) * 100)
			}
		})

	if reporter.canceled {
		if onComplete != nil {
			onComplete(StatusCanceled, nil)
		}
		return
	}
	if err != nil {
		if onComplete != nil {
			onComplete(StatusFailed, err)
		}
		return
	}
	if onComplete != nil {
		onComplete(StatusOK, nil)
	}
}

// cancelableReader wraps the source file so Cancel() can stop an in-flight
// Put by making the next Read return io.EOF early.
type cancelableReader struct {
	r        *os.File
	req      *UploadRequest
	canceled bool
}

func (c *cancelableReader) Read(p []byte) (int, error) {
	if c.req.isCanceled() {
		c.canceled = true
		return 0, io.EOF
	}
	return c.r.Read(p)
}
