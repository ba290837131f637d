package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/sonirico/wsconsole"
)

// version is overridable at link time:
//
//	go build -ldflags "-X main.version=1.1.0"
var version = "dev" //nolint:gochecknoglobals

type options struct {
	cfg       wsconsole.Config
	headers   []string
	verbose   int
	noColor   bool
	connect   bool
	pingStamp bool
	address   string
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts := options{cfg: wsconsole.DefaultConfig()}
	opts.cfg.LoadFromEnv()

	fs := flag.NewFlagSet("wsconsole", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// connection
	fs.DurationVar(&opts.cfg.HandshakeTimeout, "handshake-timeout", opts.cfg.HandshakeTimeout, "Opening handshake timeout")
	fs.DurationVar(&opts.cfg.WriteTimeout, "write-timeout", opts.cfg.WriteTimeout, "Per message write timeout")
	fs.DurationVar(&opts.cfg.PingInterval, "ping-interval", opts.cfg.PingInterval, "Send keep-alive pings every interval (0 disables)")
	fs.BoolVar(&opts.pingStamp, "ping-timestamp", false, "Put the current time in keep-alive ping payloads")
	fs.IntVar(&opts.cfg.SendQueueSize, "send-queue", opts.cfg.SendQueueSize, "Outbound messages waiting to be written")
	fs.StringArrayVarP(&opts.headers, "header", "H", nil, "Extra handshake header, 'Key: Value' (repeatable)")
	fs.BoolVar(&opts.cfg.CloseAbandoned, "close-abandoned", opts.cfg.CloseAbandoned, "Close connections on disconnect instead of just forgetting them")
	fs.BoolVarP(&opts.connect, "connect", "c", false, "Connect to the address given as argument right away")

	// console
	fs.IntVar(&opts.cfg.LogCapacity, "log-capacity", opts.cfg.LogCapacity, "Keep at most this many console entries (0 keeps all)")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&opts.verbose, "verbose", "v", "Increase diagnostic verbosity on stderr (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(stderr, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "wsconsole %s\n", version)
		return nil
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		opts.address = rest[0]
	default:
		return errors.Errorf("expected at most one address, got %d arguments", len(rest))
	}

	for _, h := range opts.headers {
		if err := opts.cfg.AddHeader(h); err != nil {
			return err
		}
	}

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetLevel(wsconsole.LevelFromVerbosity(opts.verbose))

	ctrl, err := newController(log, opts)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	c := newConsole(ctrl, stdout, !opts.noColor && isTerminal(stdout))
	c.address = opts.address

	if opts.connect {
		c.handle(ctx, "/connect")
	}

	return c.run(ctx, stdin)
}

func newController(log *logrus.Logger, opts options) (*wsconsole.Controller, error) {
	if !opts.pingStamp {
		return wsconsole.NewControllerFromConfig(wsconsole.NewLogrusLogger(log), opts.cfg)
	}

	if err := opts.cfg.Validate(); err != nil {
		return nil, err
	}

	l := wsconsole.NewLogrusLogger(log)
	transport := wsconsole.NewWebsocketTransport(
		l,
		wsconsole.NewDialer(opts.cfg),
		wsconsole.NewDialParamsRepo(l, wsconsole.StaticHeaderDialParamsGetter(opts.cfg.Header)),
		wsconsole.WebsocketTransportOptions{
			WriteTimeout:  opts.cfg.WriteTimeout,
			PingInterval:  opts.cfg.PingInterval,
			SendQueueSize: opts.cfg.SendQueueSize,
			PingPayload:   wsconsole.NewKeepAliveMessageFactory(nil),
		},
	)

	return wsconsole.NewController(
		transport,
		wsconsole.WithLogger(l),
		wsconsole.WithEventLog(wsconsole.NewEventLog(opts.cfg.LogCapacity)),
		wsconsole.WithCloseAbandoned(opts.cfg.CloseAbandoned),
	), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `wsconsole %s - interactive websocket console

Usage:
  wsconsole [flags] [ws://|wss://address]

Commands, once running:
%s
Flags:
%s`, version, commandHelp, fs.FlagUsages())
}
