package itf

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
	"github.com/arsdkgo/arsdkctrl/pkg/storage"
)

// ProgressFunc reports one completed (or failed) file within a batch
// download: path is the local file path, count/total describe position in
// the batch (spec §4.6 "download progress"; mirrors arsdk_crashml_req_cbs's
// progress callback shape, shared verbatim by crashml/flightlog/pud/media).
type ProgressFunc func(path string, count, total int, status Status)

// CompleteFunc reports the final outcome of a request, download or upload.
type CompleteFunc func(status Status, err error)

// FetchConfig parameterizes one batch download over FTP.
type FetchConfig struct {
	Pool       *ftp.Pool
	Addr       string
	Port       int
	RemoteDir  string
	LocalDir   string
	DeviceType arsdk.DeviceType

	// Match filters remote entries by name; nil matches everything.
	Match func(name string) bool

	// DeleteRemote removes each remote file from the device after it has
	// been downloaded successfully (crashml/flightlog do this, pud/media
	// do not — set per call site).
	DeleteRemote bool

	// Mirror, if set, additionally writes every downloaded file to a
	// durable store (e.g. S3 via pkg/storage) keyed by its name relative
	// to RemoteDir, alongside the local copy under LocalDir. A mirror
	// failure fails the whole file the same way a local write failure
	// would (spec §4.6 "optional archival mirror").
	Mirror storage.FileStore
}

// FetchRequest is a running or finished batch download.
type FetchRequest struct {
	cfg FetchConfig

	mu       sync.Mutex
	canceled bool
	done     bool
}

// DevType returns the device type this request targets.
func (r *FetchRequest) DevType() arsdk.DeviceType { return r.cfg.DeviceType }

// Cancel marks the request canceled; the in-flight file finishes, then the
// batch stops and reports StatusCanceled.
func (r *FetchRequest) Cancel() {
	r.mu.Lock()
	r.canceled = true
	r.mu.Unlock()
}

func (r *FetchRequest) isCanceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

// StartFetch lists cfg.RemoteDir, downloads every matching entry into
// cfg.LocalDir, and reports progress per file and a final completion. The
// batch runs on its own goroutine; onProgress/onComplete are invoked from
// that goroutine, so callers that mutate their own state from them must
// synchronize (the teacher's convention is to Post such callbacks onto the
// application's own loop, which any caller here can do themselves).
func StartFetch(cfg FetchConfig, onProgress ProgressFunc, onComplete CompleteFunc) *FetchRequest {
	req := &FetchRequest{cfg: cfg}
	go req.run(onProgress, onComplete)
	return req
}

func (r *FetchRequest) run(onProgress ProgressFunc, onComplete CompleteFunc) {
	entries, err := ftp.List(r.cfg.Pool, r.cfg.Addr, r.cfg.Port, r.cfg.RemoteDir)
	if err != nil {
		r.finish(onComplete, StatusFailed, err)
		return
	}

	var names []string
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if r.cfg.Match != nil && !r.cfg.Match(e.Name) {
			continue
		}
		names = append(names, e.Name)
	}

	if err := os.MkdirAll(r.cfg.LocalDir, 0o755); err != nil {
		r.finish(onComplete, StatusFailed, err)
		return
	}

	total := len(names)
	for i, name := range names {
		if r.isCanceled() {
			r.finish(onComplete, StatusCanceled, nil)
			return
		}

		remotePath := filepath.Join(r.cfg.RemoteDir, name)
		localPath := filepath.Join(r.cfg.LocalDir, name)

		if err := r.downloadOne(remotePath, localPath, name); err != nil {
			if onProgress != nil {
				onProgress(localPath, i+1, total, StatusFailed)
			}
			r.finish(onComplete, StatusFailed, err)
			return
		}

		if r.cfg.DeleteRemote {
			ftp.Delete(r.cfg.Pool, r.cfg.Addr, r.cfg.Port, remotePath)
		}

		if onProgress != nil {
			onProgress(localPath, i+1, total, StatusOK)
		}
	}

	r.finish(onComplete, StatusOK, nil)
}

func (r *FetchRequest) downloadOne(remotePath, localPath, name string) error {
	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := ftp.Get(r.cfg.Pool, r.cfg.Addr, r.cfg.Port, remotePath, f, 0, nil); err != nil {
		return err
	}
	if r.cfg.Mirror == nil {
		return nil
	}
	return r.mirrorFile(localPath, name)
}

func (r *FetchRequest) mirrorFile(localPath, name string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx := context.Background()
	dst, err := r.cfg.Mirror.Write(ctx, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (r *FetchRequest) finish(onComplete CompleteFunc, status Status, err error) {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
	if onComplete != nil {
		onComplete(status, err)
	}
}
