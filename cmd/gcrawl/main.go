// Command gcrawl reads one "ip:port" Gnutella peer address per line
// from stdin and writes one report line per peer to stdout, crawling
// up to --max-connections peers concurrently.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/dstutzbach/gnutella-crawler/internal/admission"
	"github.com/dstutzbach/gnutella-crawler/internal/engine"
	"github.com/dstutzbach/gnutella-crawler/internal/gnutella"
)

const defaultUserAgent = "Cruiser (http://mirage.cs.uoregon.edu/P2P/root-tools.html)"

func main() {
	var (
		timeout        time.Duration
		maxConnections int
		userAgent      string
		tickInterval   time.Duration
		logLevel       string
	)

	root := &cobra.Command{
		Use:   "gcrawl",
		Short: "Crawl Gnutella ultrapeers reachable from addresses read on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(timeout, maxConnections, userAgent, tickInterval, logLevel)
		},
	}

	flags := root.Flags()
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "idle timeout for a single peer handshake")
	flags.IntVar(&maxConnections, "max-connections", 4000, "maximum concurrent outbound connections")
	flags.StringVar(&userAgent, "user-agent", defaultUserAgent, "User-Agent sent in the handshake request")
	flags.DurationVar(&tickInterval, "tick-interval", 10*time.Millisecond, "interval between Q: progress lines")
	flags.StringVar(&logLevel, "log-level", "info", "logrus level for stderr diagnostics; never affects the stdout protocol")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(timeout time.Duration, maxConnections int, userAgent string, tickInterval time.Duration, logLevel string) error {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return errors.Wrapf(err, "parsing --log-level %q", logLevel)
	}
	logger.SetLevel(level)
	log := logrus.NewEntry(logger)

	rt, err := engine.NewRuntime(log)
	if err != nil {
		return errors.Wrap(err, "initializing runtime")
	}

	stdout := rt.NewFile(unix.Stdout, func() {
		engine.Fatalf(log, "gcrawl: stdout write failed")
	})
	stdout.DisableRead()
	rt.Stdout = stdout

	cfg := gnutella.Config{Timeout: timeout, UserAgent: userAgent}
	connLog := log.WithField("component", "gnutella")

	q := admission.New(maxConnections, rt.ActiveConnections, func(addr string) {
		gnutella.Start(rt, stdout, cfg, connLog, addr)
	})
	rt.SetDrainFunc(q.Drain)

	var tick *engine.Timer
	var scheduleTick func()
	scheduleTick = func() {
		tick = rt.Timers.Schedule(tickInterval, func(payload any) {
			stdout.Printf("Q: %d %d\n", q.Len(), rt.ActiveConnections())
			scheduleTick()
		}, nil)
	}
	scheduleTick()

	// The stdin error handler fires on both genuine I/O failure and the
	// ordinary EOF a finite input list produces. Either way there is no
	// more work to admit, so the tick that exists only to report queue
	// progress is cancelled explicitly rather than left to rearm forever.
	stdin := rt.NewFile(unix.Stdin, func() {
		rt.Timers.Cancel(tick)
		log.Debug("gcrawl: stdin closed, tick cancelled")
	})
	engine.NewLineReader(stdin, func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		q.Enqueue(line)
	})

	rt.Run()
	return nil
}
