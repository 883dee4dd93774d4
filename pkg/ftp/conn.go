// Package ftp implements the FTP sub-protocol engine (spec §4.5): a pool of
// authenticated control connections keyed by (remote-address, remote-port)
// and a canonical per-request-type command sequence driven over RFC 959 +
// RFC 2428 (EPSV). No FTP client library appears anywhere in the retrieved
// example corpus, so this package is built directly on net/textproto, the
// standard library's line-oriented request/response primitive — the same
// role textproto.Conn plays for any other line-based protocol.
package ftp

import (
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
)

// Credentials is the USER/PASS pair used to authenticate a freshly opened
// connection (spec §4.5 "Handshake"; defaults to anonymous/empty).
type Credentials struct {
	User     string
	Password string
}

// DefaultCredentials is the anonymous login spec §4.5 mandates by default.
var DefaultCredentials = Credentials{User: "anonymous", Password: ""}

// expectedCode is the hard-coded response code each command must receive
// (spec §4.5 "Each expected response code is hard-coded per command").
var expectedCode = map[string]int{
	"USER": 230,
	"PASS": 230,
	"CWD":  250,
	"RNFR": 350,
	"RNTO": 250,
	"DELE": 250,
	"RMD":  250,
	"EPSV": 229,
	"TYPE": 200,
	"LIST": 150,
	"SIZE": 213,
	"RETR": 150,
	"STOR": 150,
	"REST": 350,
	"APPE": 150,
}

// Conn is one authenticated FTP control connection (spec §3
// "FtpConnection"), keyed by (remote-address, remote-port) in Pool.
type Conn struct {
	addr string
	port int

	tp      *textproto.Conn
	conn    net.Conn
	busy    bool
	lastMsg string
}

// dial opens a TCP control connection to addr:port and authenticates with
// creds (spec §4.5 "Handshake": USER then PASS, only then reports
// connected).
func dial(addr string, port int, creds Credentials, timeout time.Duration) (*Conn, error) {
	target := net.JoinHostPort(addr, strconv.Itoa(port))
	nc, err := net.DialTimeout("tcp", target, timeout)
	if err != nil {
		return nil, arsdk.Wrap(arsdk.KindIOFailed, "ftp dial", err)
	}
	tp := textproto.NewConn(nc)

	if _, _, err := tp.ReadResponse(220); err != nil {
		tp.Close()
		return nil, arsdk.Wrap(arsdk.KindIOFailed, "ftp banner", err)
	}

	c := &Conn{addr: addr, port: port, tp: tp, conn: nc}
	if err := c.command("USER", creds.User); err != nil {
		tp.Close()
		return nil, err
	}
	if err := c.command("PASS", creds.Password); err != nil {
		tp.Close()
		return nil, err
	}
	return c, nil
}

// command sends one FTP command and checks the response against
// expectedCode's hard-coded table, returning failed(code) on mismatch
// (spec §4.5).
func (c *Conn) command(verb string, args ...string) error {
	line := verb
	if len(args) > 0 {
		line = verb + " " + strings.Join(args, " ")
	}
	id, err := c.tp.Cmd("%s", line)
	if err != nil {
		return arsdk.Wrap(arsdk.KindIOFailed, "ftp send "+verb, err)
	}
	c.tp.StartResponse(id)
	defer c.tp.EndResponse(id)

	want, ok := expectedCode[verb]
	if !ok {
		return arsdk.Newf(arsdk.KindInvalidArgument, "ftp: no expected code registered for %s", verb)
	}
	code, msg, err := c.tp.ReadResponse(want)
	if err != nil {
		return arsdk.Newf(arsdk.KindIOFailed, "ftp %s: %s", verb, msg).WithCode(code)
	}
	c.lastMsg = msg
	return nil
}

// commandText is like command but also returns the response text, for
// callers that need to parse it (EPSV's port, SIZE's byte count).
func (c *Conn) commandText(verb string, args ...string) (msg string, err error) {
	if err := c.command(verb, args...); err != nil {
		return "", err
	}
	return c.lastMsg, nil
}

func (c *Conn) close() error {
	return c.tp.Close()
}

// epsvPattern matches the EPSV response's "(|||<port>|)" payload (spec
// §4.5 "EPSV parsing").
var epsvPattern = func() func(string) (int, bool) {
	return func(s string) (int, bool) {
		start := strings.Index(s, "(|||")
		if start < 0 {
			return 0, false
		}
		rest := s[start+4:]
		end := strings.Index(rest, "|)")
		if end < 0 {
			return 0, false
		}
		port, err := strconv.Atoi(rest[:end])
		if err != nil {
			return 0, false
		}
		return port, true
	}
}()

// openData runs EPSV and TYPE <mode> on the control channel and opens the
// resulting data-channel TCP connection to the same host (spec §4.5 "EPSV
// parsing"; data channel always dials the control connection's own host).
func (c *Conn) openData(mode string, timeout time.Duration) (net.Conn, error) {
	msg, err := c.commandText("EPSV")
	if err != nil {
		return nil, err
	}
	port, ok := epsvPattern(msg)
	if !ok {
		return nil, arsdk.Newf(arsdk.KindIOFailed, "ftp: unparseable EPSV response %q", msg)
	}
	if err := c.command("TYPE", mode); err != nil {
		return nil, err
	}
	dataAddr := net.JoinHostPort(c.addr, strconv.Itoa(port))
	dc, err := net.DialTimeout("tcp", dataAddr, timeout)
	if err != nil {
		return nil, arsdk.Wrap(arsdk.KindIOFailed, "ftp data dial", err)
	}
	return dc, nil
}

func fmtSize(n int64) string { return fmt.Sprintf("%d", n) }
