package ftp

import (
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"sync"
)

// SimServer is a minimal in-memory FTP server implementing just the
// command subset Conn drives (USER/PASS/TYPE/EPSV/SIZE/REST/RETR/STOR/
// APPE/LIST/DELE/RNFR/RNTO), standing in for a device's embedded FTP
// daemon (spec §4.5). It's the exported, production-usable twin of this
// package's own test double (server_test.go's fakeServer): cmd/devicesim
// runs one to give the itf fetch/upload engines and the ftp subcommands
// something real to talk to end to end.
type SimServer struct {
	ln net.Listener

	mu    sync.Mutex
	files map[string][]byte
}

// NewSimServer starts a SimServer listening on addr (e.g. "127.0.0.1:0"
// for an ephemeral port).
func NewSimServer(addr string) (*SimServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &SimServer{ln: ln, files: make(map[string][]byte)}
	go s.acceptLoop()
	return s, nil
}

// Addr returns the bound listen address.
func (s *SimServer) Addr() net.Addr { return s.ln.Addr() }

// Port returns the bound TCP port.
func (s *SimServer) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// SetFile seeds or overwrites a file's content, keyed by its full remote
// path (e.g. "/internal_000/media/a.jpg").
func (s *SimServer) SetFile(remotePath string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[remotePath] = content
}

// GetFile returns a file's content and whether it exists.
func (s *SimServer) GetFile(remotePath string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[remotePath]
	return b, ok
}

// Close stops accepting new control connections.
func (s *SimServer) Close() error { return s.ln.Close() }

func (s *SimServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *SimServer) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 devicesim ftp ready")

	var renameFrom string
	var restOffset int64
	var pendingData net.Listener

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb, arg, _ := strings.Cut(line, " ")
		verb = strings.ToUpper(verb)

		switch verb {
		case "USER", "PASS":
			tp.PrintfLine("230 logged in")
		case "TYPE":
			tp.PrintfLine("200 type set")
		case "EPSV":
			dln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				tp.PrintfLine("425 cannot open data connection")
				continue
			}
			port := dln.Addr().(*net.TCPAddr).Port
			pendingData = dln
			tp.PrintfLine("229 Entering Extended Passive Mode (|||%d|)", port)
		case "SIZE":
			b, ok := s.GetFile(arg)
			if !ok {
				tp.PrintfLine("550 not found")
				continue
			}
			tp.PrintfLine("213 %d", len(b))
		case "REST":
			fmt.Sscanf(arg, "%d", &restOffset)
			tp.PrintfLine("350 rest ok")
		case "RETR":
			b, ok := s.GetFile(arg)
			if !ok {
				tp.PrintfLine("550 not found")
				continue
			}
			tp.PrintfLine("150 opening data connection")
			dc, err := pendingData.Accept()
			if err == nil {
				off := restOffset
				restOffset = 0
				if off < int64(len(b)) {
					dc.Write(b[off:])
				}
				dc.Close()
			}
			pendingData.Close()
			tp.PrintfLine("226 transfer complete")
		case "STOR", "APPE":
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
			if verb == "APPE" {
				existing, _ := s.GetFile(arg)
				buf = append(existing, buf...)
			}
			s.SetFile(arg, buf)
			tp.PrintfLine("226 transfer complete")
		case "LIST":
			tp.PrintfLine("150 opening data connection")
			dc, err := pendingData.Accept()
			if err == nil {
				s.mu.Lock()
				for name, content := range s.files {
					if !strings.HasPrefix(name, arg) {
						continue
					}
					fmt.Fprintf(dc, "%d %s\r\n", len(content), name)
				}
				s.mu.Unlock()
				dc.Close()
			}
			pendingData.Close()
			tp.PrintfLine("226 transfer complete")
		case "DELE":
			s.mu.Lock()
			delete(s.files, arg)
			s.mu.Unlock()
			tp.PrintfLine("250 deleted")
		case "RNFR":
			renameFrom = arg
			tp.PrintfLine("350 ready for RNTO")
		case "RNTO":
			s.mu.Lock()
			if b, ok := s.files[renameFrom]; ok {
				s.files[arg] = b
				delete(s.files, renameFrom)
			}
			s.mu.Unlock()
			tp.PrintfLine("250 renamed")
		default:
			tp.PrintfLine("500 unknown command")
		}
	}
}
