package ftp

import (
	"io"
	"strconv"
	"time"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
)

// ProgressFunc is called periodically during Get/Put with the number of
// bytes transferred so far (spec §4.5 "progress reporting").
type ProgressFunc func(transferred int64)

// DefaultDataTimeout bounds dialing the EPSV data channel.
const DefaultDataTimeout = 10 * time.Second

// Entry is one parsed LIST line (spec §4.5 "list").
type Entry struct {
	Name  string
	Size  int64
	IsDir bool
}

// Get downloads remotePath from addr:port into w. The data channel is
// opened first (EPSV, TYPE I); if resumeFrom is positive (w already holds
// resumeFrom bytes), SIZE and then REST resumeFrom follow on the control
// connection, and only then RETR, appending just the missing tail (spec
// §4.5 "resume-by-SIZE-then-REST"; canonical wire order EPSV, TYPE I,
// SIZE, REST, RETR).
func Get(pool *Pool, addr string, port int, remotePath string, w io.Writer, resumeFrom int64, progress ProgressFunc) error {
	c, err := pool.Get(addr, port)
	if err != nil {
		return err
	}

	dc, err := c.openData("I", DefaultDataTimeout)
	if err != nil {
		pool.Drop(addr, port)
		return err
	}
	defer dc.Close()

	if resumeFrom > 0 {
		remoteSize, err := sizeOf(c, remotePath)
		if err != nil {
			pool.Drop(addr, port)
			return err
		}
		if resumeFrom >= remoteSize {
			return nil
		}
		if err := c.command("REST", fmtSize(resumeFrom)); err != nil {
			pool.Drop(addr, port)
			return err
		}
	}

	if err := c.command("RETR", remotePath); err != nil {
		pool.Drop(addr, port)
		return err
	}

	transferred := resumeFrom
	buf := make([]byte, 32*1024)
	for {
		n, rerr := dc.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return arsdk.Wrap(arsdk.KindIOFailed, "ftp get: write local", werr)
			}
			transferred += int64(n)
			if progress != nil {
				progress(transferred)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return arsdk.Wrap(arsdk.KindIOFailed, "ftp get: read data channel", rerr)
		}
	}

	if _, _, err := c.tp.ReadResponse(226); err != nil {
		return arsdk.Wrap(arsdk.KindIOFailed, "ftp get: transfer complete", err)
	}
	return nil
}

// Put uploads r (of size total bytes) to remotePath on addr:port. If resume
// is true, it first SIZEs the remote file and REST/APPEs from that offset
// instead of overwriting from zero (spec §4.5 "resume-by-SIZE-then-REST").
func Put(pool *Pool, addr string, port int, remotePath string, r io.Reader, total int64, resume bool, progress ProgressFunc) error {
	c, err := pool.Get(addr, port)
	if err != nil {
		return err
	}

	var transferred int64
	verb := "STOR"
	if resume {
		remoteSize, err := sizeOf(c, remotePath)
		if err == nil && remoteSize > 0 && remoteSize < total {
			if seeker, ok := r.(io.Seeker); ok {
				if _, serr := seeker.Seek(remoteSize, io.SeekStart); serr == nil {
					if err := c.command("REST", fmtSize(remoteSize)); err != nil {
						pool.Drop(addr, port)
						return err
					}
					verb = "APPE"
					transferred = remoteSize
				}
			}
		}
	}

	dc, err := c.openData("I", DefaultDataTimeout)
	if err != nil {
		pool.Drop(addr, port)
		return err
	}
	defer dc.Close()

	if err := c.command(verb, remotePath); err != nil {
		pool.Drop(addr, port)
		return err
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := dc.Write(buf[:n]); werr != nil {
				return arsdk.Wrap(arsdk.KindIOFailed, "ftp put: write data channel", werr)
			}
			transferred += int64(n)
			if progress != nil {
				progress(transferred)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return arsdk.Wrap(arsdk.KindIOFailed, "ftp put: read local", rerr)
		}
	}
	dc.Close()

	if _, _, err := c.tp.ReadResponse(226); err != nil {
		return arsdk.Wrap(arsdk.KindIOFailed, "ftp put: transfer complete", err)
	}
	return nil
}

// List returns the parsed directory listing of remotePath.
func List(pool *Pool, addr string, port int, remotePath string) ([]Entry, error) {
	c, err := pool.Get(addr, port)
	if err != nil {
		return nil, err
	}

	dc, err := c.openData("A", DefaultDataTimeout)
	if err != nil {
		pool.Drop(addr, port)
		return nil, err
	}
	defer dc.Close()

	if err := c.command("LIST", remotePath); err != nil {
		pool.Drop(addr, port)
		return nil, err
	}

	raw, err := io.ReadAll(dc)
	if err != nil {
		return nil, arsdk.Wrap(arsdk.KindIOFailed, "ftp list: read data channel", err)
	}
	if _, _, err := c.tp.ReadResponse(226); err != nil {
		return nil, arsdk.Wrap(arsdk.KindIOFailed, "ftp list: transfer complete", err)
	}
	return parseListing(raw), nil
}

// Rename moves fromPath to toPath on the same connection (RNFR then RNTO).
func Rename(pool *Pool, addr string, port int, fromPath, toPath string) error {
	c, err := pool.Get(addr, port)
	if err != nil {
		return err
	}
	if err := c.command("RNFR", fromPath); err != nil {
		return err
	}
	return c.command("RNTO", toPath)
}

// Delete removes remotePath.
func Delete(pool *Pool, addr string, port int, remotePath string) error {
	c, err := pool.Get(addr, port)
	if err != nil {
		return err
	}
	return c.command("DELE", remotePath)
}

// Size returns the byte size of remotePath as reported by the SIZE command.
func Size(pool *Pool, addr string, port int, remotePath string) (int64, error) {
	c, err := pool.Get(addr, port)
	if err != nil {
		return 0, err
	}
	return sizeOf(c, remotePath)
}

func sizeOf(c *Conn, remotePath string) (int64, error) {
	msg, err := c.commandText("SIZE", remotePath)
	if err != nil {
		return 0, err
	}
	fields := splitFields(msg)
	if len(fields) == 0 {
		return 0, arsdk.Newf(arsdk.KindIOFailed, "ftp size: unparseable response %q", msg)
	}
	n, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil {
		return 0, arsdk.Wrap(arsdk.KindIOFailed, "ftp size: parse response", err)
	}
	return n, nil
}
