package itf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
	"github.com/arsdkgo/arsdkctrl/pkg/kv"
	"github.com/arsdkgo/arsdkctrl/pkg/storage"
)

// fakeFTPServer is a small FTP server test double, independent from
// pkg/ftp's own unexported fakeServer, serving files seeded under a single
// fixed directory so StartFetch/StartUpload can be exercised end-to-end.
type fakeFTPServer struct {
	ln net.Listener

	mu    sync.Mutex
	files map[string][]byte
}

func newFakeFTPServer(t *testing.T) *fakeFTPServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeFTPServer{ln: ln, files: make(map[string][]byte)}
	t.Cleanup(func() { ln.Close() })
	go s.acceptLoop()
	return s
}

func (s *fakeFTPServer) addr() string { return s.ln.Addr().(*net.TCPAddr).IP.String() }
func (s *fakeFTPServer) port() int    { return s.ln.Addr().(*net.TCPAddr).Port }

func (s *fakeFTPServer) setFile(name string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = content
}

func (s *fakeFTPServer) hasFile(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[name]
	return ok
}

func (s *fakeFTPServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *fakeFTPServer) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 ready")
	var pendingData net.Listener

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb, arg, _ := strings.Cut(line, " ")
		verb = strings.ToUpper(verb)
		arg = filepath.Base(arg)

		switch verb {
		case "USER", "PASS":
			tp.PrintfLine("230 ok")
		case "TYPE":
			tp.PrintfLine("200 ok")
		case "EPSV":
			dln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				tp.PrintfLine("425 no data conn")
				continue
			}
			pendingData = dln
			tp.PrintfLine("229 Entering Extended Passive Mode (|||%d|)", dln.Addr().(*net.TCPAddr).Port)
		case "LIST":
			tp.PrintfLine("150 opening data connection")
			dc, err := pendingData.Accept()
			if err == nil {
				s.mu.Lock()
				for name, content := range s.files {
					fmt.Fprintf(dc, "%d %s\r\n", len(content), name)
				}
				s.mu.Unlock()
				dc.Close()
			}
			pendingData.Close()
			tp.PrintfLine("226 done")
		case "RETR":
			s.mu.Lock()
			b, ok := s.files[arg]
			s.mu.Unlock()
			if !ok {
				tp.PrintfLine("550 not found")
				continue
			}
			tp.PrintfLine("150 opening data connection")
			dc, err := pendingData.Accept()
			if err == nil {
				dc.Write(b)
				dc.Close()
			}
			pendingData.Close()
			tp.PrintfLine("226 done")
		case "STOR":
			tp.PrintfLine("150 opening data connection")
			dc, err := pendingData.Accept()
			var buf []byte
			if err == nil {
				tmp := make([]byte, 32*1024)
				for {
					n, rerr := dc.Read(tmp)
					if n > 0 {
						buf = append(buf, tmp[:n]...)
					}
					if rerr != nil {
						break
					}
				}
				dc.Close()
			}
			pendingData.Close()
			s.setFile(arg, buf)
			tp.PrintfLine("226 done")
		case "DELE":
			s.mu.Lock()
			delete(s.files, arg)
			s.mu.Unlock()
			tp.PrintfLine("250 deleted")
		case "SIZE":
			s.mu.Lock()
			b, ok := s.files[arg]
			s.mu.Unlock()
			if !ok {
				tp.PrintfLine("550 not found")
				continue
			}
			tp.PrintfLine("213 %d", len(b))
		default:
			tp.PrintfLine("500 unknown")
		}
	}
}

func TestStartCrashmlFetchDownloadsAndDeletes(t *testing.T) {
	srv := newFakeFTPServer(t)
	srv.setFile("report1.tar.gz", []byte("crash data"))

	pool := ftp.NewPool(ftp.DefaultCredentials)
	t.Cleanup(func() { pool.Close() })

	dir := t.TempDir()

	done := make(chan Status, 1)
	StartCrashmlFetch(pool, srv.addr(), srv.port(), dir, arsdk.DeviceTypeDrone, CrashmlTypeTargz, nil,
		nil, func(status Status, err error) { done <- status })

	select {
	case status := <-done:
		if status != StatusOK {
			t.Fatalf("status = %v", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for crashml fetch to complete")
	}

	content, err := os.ReadFile(filepath.Join(dir, "report1.tar.gz"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(content) != "crash data" {
		t.Fatalf("content = %q", content)
	}
	if srv.hasFile("report1.tar.gz") {
		t.Fatal("crashml file should have been deleted from the device after download")
	}
}

func TestStartMediaFetchMirrorsToFileStore(t *testing.T) {
	srv := newFakeFTPServer(t)
	srv.setFile("clip.mp4", []byte("video bytes"))

	pool := ftp.NewPool(ftp.DefaultCredentials)
	t.Cleanup(func() { pool.Close() })

	localDir := t.TempDir()
	mirror, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	done := make(chan Status, 1)
	StartFetch(FetchConfig{
		Pool: pool, Addr: srv.addr(), Port: srv.port(),
		RemoteDir: "/", LocalDir: localDir, DeviceType: arsdk.DeviceTypeDrone,
		Match: isMediaResource, Mirror: mirror,
	}, nil, func(status Status, err error) { done <- status })

	select {
	case status := <-done:
		if status != StatusOK {
			t.Fatalf("status = %v", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for media fetch")
	}

	rc, err := mirror.Read(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("mirror.Read: %v", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(content) != "video bytes" {
		t.Fatalf("mirrored content = %q", content)
	}
}

func TestStartFirmwareUploadReportsProgress(t *testing.T) {
	srv := newFakeFTPServer(t)

	pool := ftp.NewPool(ftp.DefaultCredentials)
	t.Cleanup(func() { pool.Close() })

	dir := t.TempDir()
	localPath := filepath.Join(dir, "fw.bin")
	if err := os.WriteFile(localPath, bytes.Repeat([]byte{0xAB}, 4096), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var lastPercent float32
	done := make(chan Status, 1)
	StartFirmwareUpload(pool, srv.addr(), srv.port(), localPath, arsdk.DeviceTypeDrone,
		func(pct float32) { lastPercent = pct },
		func(status Status, err error) { done <- status })

	select {
	case status := <-done:
		if status != StatusOK {
			t.Fatalf("status = %v", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for firmware upload to complete")
	}

	if lastPercent < 99 {
		t.Fatalf("expected progress to reach ~100%%, got %v", lastPercent)
	}
	if !srv.hasFile("update.bin") {
		t.Fatal("firmware should have been uploaded")
	}
}

func TestStartEphemerisUploadSkipsWhenMD5Cached(t *testing.T) {
	srv := newFakeFTPServer(t)

	pool := ftp.NewPool(ftp.DefaultCredentials)
	t.Cleanup(func() { pool.Close() })

	dir := t.TempDir()
	localPath := filepath.Join(dir, "ephemeris.bin")
	if err := os.WriteFile(localPath, []byte("ephemeris data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cache := kv.NewMemory(nil)
	t.Cleanup(func() { cache.Close() })

	// First upload: nothing cached, so it runs and stores the MD5.
	done := make(chan Status, 1)
	StartEphemerisUpload(pool, srv.addr(), srv.port(), localPath, arsdk.DeviceTypeDrone, cache, "dev-1",
		nil, func(status Status, err error) { done <- status })
	select {
	case status := <-done:
		if status != StatusOK {
			t.Fatalf("first upload status = %v", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first ephemeris upload")
	}
	if !srv.hasFile("ephemeris.bin") {
		t.Fatal("ephemeris file should have been uploaded")
	}

	// Remove the file server-side; a cache hit should report OK without
	// re-uploading it.
	srv.mu.Lock()
	delete(srv.files, "ephemeris.bin")
	srv.mu.Unlock()

	done2 := make(chan Status, 1)
	StartEphemerisUpload(pool, srv.addr(), srv.port(), localPath, arsdk.DeviceTypeDrone, cache, "dev-1",
		nil, func(status Status, err error) { done2 <- status })
	select {
	case status := <-done2:
		if status != StatusOK {
			t.Fatalf("cached upload status = %v", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for cached ephemeris upload")
	}
	if srv.hasFile("ephemeris.bin") {
		t.Fatal("cached upload should not have re-uploaded the file")
	}
}

func TestAppIDToDeviceType(t *testing.T) {
	if got := AppIDToDeviceType(0x00000001); got != arsdk.DeviceTypeDrone {
		t.Fatalf("got %v, want drone", got)
	}
	if got := AppIDToDeviceType(0xdeadbeef); got != arsdk.DeviceTypeUnknown {
		t.Fatalf("got %v, want unknown", got)
	}
}

func TestBlackboxListenerReceivesPilotingInfo(t *testing.T) {
	itf := NewBlackboxItf()
	received := make(chan PilotingInfo, 1)
	l := itf.CreateListener(BlackboxListenerCbs{
		RCPilotingInfo: func(info PilotingInfo) { received <- info },
	})
	defer l.Unregister()

	itf.NotifyPilotingInfo(PilotingInfo{Pitch: 10, Roll: -5})

	select {
	case info := <-received:
		if info.Pitch != 10 || info.Roll != -5 {
			t.Fatalf("info = %+v", info)
		}
	case <-time.After(time.Second):
		t.Fatal("listener did not receive piloting info")
	}
}

func TestBlackboxUnregisterStopsDelivery(t *testing.T) {
	itf := NewBlackboxItf()
	var calls int
	l := itf.CreateListener(BlackboxListenerCbs{
		RCButtonAction: func(action int) { calls++ },
	})
	l.Unregister()
	itf.NotifyRCButtonAction(1)

	if calls != 0 {
		t.Fatalf("calls = %d, want 0 after unregister", calls)
	}
}
