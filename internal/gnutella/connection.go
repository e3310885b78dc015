package gnutella

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/dstutzbach/gnutella-crawler/internal/engine"
)

// logDialFailure records the dial-setup failure with the step that
// produced it. The wrapped error never reaches stdout (reportError
// sends peers only the bare errno string); this is purely the stderr
// diagnostic trail for whoever is operating the crawler.
func logDialFailure(log *logrus.Entry, addr, step string, err error) {
	if log == nil {
		return
	}
	log.WithField("addr", addr).Debug(errors.Wrapf(err, "gnutella: dial %s", step))
}

// request is the fixed Gnutella/0.6 CONNECT text sent to every peer.
// Only the User-Agent value varies.
const request = "GNUTELLA CONNECT/0.6\r\n" +
	"User-Agent: %s\r\n" +
	"X-Ultrapeer: False\r\n" +
	"Crawler: 0.1\r\n" +
	"\r\n"

// Config holds the parameters Start needs that are constant across all
// connections attempted by one crawler run.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Conn drives one peer's handshake from dial through its single report
// line. There is no explicit "Connecting"/"AwaitStatus"/"ReadHeaders"
// state field: the state is implicit in which line callback is
// currently installed on the LineReader, and the transition out of
// "connecting" is just the fd's first writable event, which the
// generic engine.File machinery already handles by flushing the
// request queued before connect() completed.
type Conn struct {
	rt     *engine.Runtime
	stdout *engine.File
	cfg    Config
	log    *logrus.Entry

	file  *engine.File
	lines *engine.LineReader
	timer *engine.Timer

	addr      string
	userAgent string
	peerType  string
	neighbors string
	leafs     string

	destroyed bool
}

// Start parses addr, opens a non-blocking connection, and on success
// registers a Conn to drive the handshake. Address-parse and connect
// failures are reported immediately and no Conn is created, since
// there is nothing yet to time out or tear down.
func Start(rt *engine.Runtime, stdout *engine.File, cfg Config, log *logrus.Entry, addr string) {
	ip, port, ok := parseAddr(addr)
	if !ok {
		reportError(stdout, addr, "Bad Address")
		return
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		logDialFailure(log, addr, "socket", err)
		reportError(stdout, addr, "Failed: %s", err)
		return
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		logDialFailure(log, addr, "set nonblocking", err)
		reportError(stdout, addr, "Failed: %s", err)
		return
	}

	sa := &unix.SockaddrInet4{Port: int(port), Addr: ip}
	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		_ = unix.Close(fd)
		if err == unix.EAGAIN {
			logDialFailure(log, addr, "connect", err)
			reportError(stdout, addr, "Bind error")
		} else {
			logDialFailure(log, addr, "connect", err)
			reportError(stdout, addr, "Failed: %s", err)
		}
		return
	}

	c := &Conn{
		rt:       rt,
		stdout:   stdout,
		cfg:      cfg,
		log:      log,
		addr:     addr,
		peerType: "Peer",
	}
	c.file = rt.NewFile(fd, c.onFileErr)
	c.lines = engine.NewLineReader(c.file, c.onStatusLine)
	c.timer = rt.Timers.Schedule(cfg.Timeout, c.onTimeout, nil)
	c.file.Printf(request, cfg.UserAgent)

	if c.log != nil {
		c.log.WithField("addr", addr).Debug("gnutella: dialing peer")
	}
}

// onFileErr is called for any fd-level failure: a failed connect
// manifests as POLLERR/POLLHUP exactly like a later connection reset,
// so both are disambiguated here via SO_ERROR, the same getsockopt the
// original's gnutella_err_handler() performs.
func (c *Conn) onFileErr() {
	errno, err := unix.GetsockoptInt(c.file.Fd(), unix.SOL_SOCKET, unix.SO_ERROR)
	switch {
	case err != nil:
		reportError(c.stdout, c.addr, "Failed: %s", err)
	case errno != 0:
		reportError(c.stdout, c.addr, "Failed: %s", unix.Errno(errno))
	default:
		reportError(c.stdout, c.addr, "Connection Dropped")
	}
	c.destroy()
}

func (c *Conn) onTimeout(payload any) {
	reportError(c.stdout, c.addr, "Timeout")
	c.destroy()
}

// onStatusLine is the initial line handler: it expects the Gnutella/0.6
// status line and accepts the original's three recognized codes before
// switching to header accumulation.
func (c *Conn) onStatusLine(line string) {
	const prefix = "GNUTELLA/0.6 "
	if !strings.HasPrefix(line, prefix) {
		reportError(c.stdout, c.addr, "Bad Handshake %s", line)
		c.destroy()
		return
	}

	code, ok := leadingInt(line[len(prefix):])
	if !ok || (code != 200 && code != 503 && code != 593) {
		reportError(c.stdout, c.addr, "Bad Handshake %s", line)
		c.destroy()
		return
	}

	c.lines.SetOnLine(c.onHeaderLine)
	c.resetTimer()
}

// onHeaderLine accumulates the headers this crawler cares about and
// ends the handshake on the blank line that terminates them.
func (c *Conn) onHeaderLine(line string) {
	if line == "" {
		reportSuccess(c.stdout, c.addr, c.userAgent, c.peerType, c.neighbors, c.leafs)
		c.destroy()
		return
	}

	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		reportError(c.stdout, c.addr, "Bad Headers %s", line)
		c.destroy()
		return
	}
	label := line[:idx]
	value := strings.TrimLeft(line[idx+1:], " \t")

	switch label {
	case "X-Ultrapeer":
		if c.peerType != "Peer" {
			reportError(c.stdout, c.addr, "Multiple X-Ultrapeer")
			c.destroy()
			return
		}
		switch strings.ToLower(value) {
		case "true":
			c.peerType = "Ultrapeer"
		case "false":
			c.peerType = "Leaf"
		default:
			reportError(c.stdout, c.addr, "Bad X-Ultrapeer: %s", value)
			c.destroy()
			return
		}
	case "Peers":
		c.neighbors = extend(c.neighbors, strings.ReplaceAll(value, ",", " "))
	case "Leaves":
		c.leafs = extend(c.leafs, strings.ReplaceAll(value, ",", " "))
	case "User-Agent":
		c.userAgent = extend(c.userAgent, value)
	}

	c.resetTimer()
}

func (c *Conn) resetTimer() {
	c.rt.Timers.Reset(c.timer, c.cfg.Timeout)
}

func (c *Conn) destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.rt.Timers.Cancel(c.timer)
	c.file.Delete()
}

func extend(existing, add string) string {
	if existing == "" {
		return add
	}
	return existing + " " + add
}

// leadingInt parses the leading optional-sign decimal run of s, the
// way C's atoi() reads a status code off the rest of a status line
// without requiring the whole remainder to be numeric.
func leadingInt(s string) (int, bool) {
	i := 0
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false
	}
	v, err := strconv.Atoi(s[start:i])
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
