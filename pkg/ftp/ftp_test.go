package ftp

import (
	"bytes"
	"testing"
)

func newTestPool(t *testing.T) (*fakeServer, *Pool) {
	srv, err := newFakeServer()
	if err != nil {
		t.Fatalf("newFakeServer: %v", err)
	}
	t.Cleanup(srv.close)
	pool := NewPool(DefaultCredentials)
	t.Cleanup(func() { pool.Close() })
	return srv, pool
}

func TestGetDownloadsFile(t *testing.T) {
	srv, pool := newTestPool(t)
	srv.setFile("flight.log", []byte("hello flight log"))

	var buf bytes.Buffer
	if err := Get(pool, srv.addr(), srv.port(), "flight.log", &buf, 0, nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if buf.String() != "hello flight log" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestGetResumesFromOffset(t *testing.T) {
	srv, pool := newTestPool(t)
	full := []byte("0123456789")
	srv.setFile("blackbox.bin", full)

	buf := bytes.NewBufferString("01234")
	if err := Get(pool, srv.addr(), srv.port(), "blackbox.bin", buf, 5, nil); err != nil {
		t.Fatalf("Get resume: %v", err)
	}
	if buf.String() != string(full) {
		t.Fatalf("got %q, want %q", buf.String(), full)
	}
}

// TestGetResumeIssuesCanonicalCommandOrder pins the wire sequence a resumed
// Get must produce: EPSV and TYPE (from openData) before SIZE and REST are
// issued on the control connection, with RETR last.
func TestGetResumeIssuesCanonicalCommandOrder(t *testing.T) {
	srv, pool := newTestPool(t)
	full := []byte("0123456789")
	srv.setFile("blackbox.bin", full)

	buf := bytes.NewBufferString("01234")
	if err := Get(pool, srv.addr(), srv.port(), "blackbox.bin", buf, 5, nil); err != nil {
		t.Fatalf("Get resume: %v", err)
	}

	var transferCmds []string
	for _, c := range srv.commandLog() {
		switch c {
		case "EPSV", "TYPE", "SIZE", "REST", "RETR":
			transferCmds = append(transferCmds, c)
		}
	}
	want := []string{"EPSV", "TYPE", "SIZE", "REST", "RETR"}
	if len(transferCmds) != len(want) {
		t.Fatalf("commands = %v, want %v", transferCmds, want)
	}
	for i, c := range want {
		if transferCmds[i] != c {
			t.Fatalf("commands = %v, want %v", transferCmds, want)
		}
	}
}

func TestPutUploadsFile(t *testing.T) {
	srv, pool := newTestPool(t)

	content := []byte("uploaded content")
	var transferred int64
	err := Put(pool, srv.addr(), srv.port(), "update.bin", bytes.NewReader(content), int64(len(content)), false,
		func(n int64) { transferred = n })
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if transferred != int64(len(content)) {
		t.Fatalf("progress reported %d, want %d", transferred, len(content))
	}
	got, ok := srv.getFile("update.bin")
	if !ok || !bytes.Equal(got, content) {
		t.Fatalf("server file = %q, want %q", got, content)
	}
}

func TestSizeReportsRemoteLength(t *testing.T) {
	srv, pool := newTestPool(t)
	srv.setFile("crash.ml", []byte("12345"))

	n, err := Size(pool, srv.addr(), srv.port(), "crash.ml")
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if n != 5 {
		t.Fatalf("Size = %d, want 5", n)
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	srv, pool := newTestPool(t)
	srv.setFile("gone.txt", []byte("x"))

	if err := Delete(pool, srv.addr(), srv.port(), "gone.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := srv.getFile("gone.txt"); ok {
		t.Fatal("file should have been removed")
	}
}

func TestRenameMovesFile(t *testing.T) {
	srv, pool := newTestPool(t)
	srv.setFile("a.txt", []byte("content"))

	if err := Rename(pool, srv.addr(), srv.port(), "a.txt", "b.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, ok := srv.getFile("a.txt"); ok {
		t.Fatal("old name should be gone")
	}
	if b, ok := srv.getFile("b.txt"); !ok || string(b) != "content" {
		t.Fatal("new name should hold the old content")
	}
}

func TestListParsesEntries(t *testing.T) {
	srv, pool := newTestPool(t)
	srv.setFile("one.log", []byte("12345"))

	entries, err := List(pool, srv.addr(), srv.port(), "/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Name != "one.log" || entries[0].Size != 5 {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestPoolReusesConnection(t *testing.T) {
	srv, pool := newTestPool(t)
	srv.setFile("f", []byte("x"))

	c1, err := pool.Get(srv.addr(), srv.port())
	if err != nil {
		t.Fatalf("Get 1: %v", err)
	}
	c2, err := pool.Get(srv.addr(), srv.port())
	if err != nil {
		t.Fatalf("Get 2: %v", err)
	}
	if c1 != c2 {
		t.Fatal("pool should reuse the same connection for the same address/port")
	}
}
