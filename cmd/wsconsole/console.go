package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/sonirico/wsconsole"
)

const commandHelp = `  /connect [address]  connect to address, or to the current one
  /address <address>  set the address to connect to
  /echo               use the public echo server address
  /disconnect         forget the current connection
  /send <text>        send text, same as typing it without a command
  /clear              clear the console
  /log                print the console again
  /status             print the connection status
  /help               print this help
  /quit               exit
`

const (
	ansiReset   = "\033[0m"
	ansiGreen   = "\033[32m"
	ansiRed     = "\033[91m"
	ansiDarkRed = "\033[31m"
	ansiGrey    = "\033[90m"
	ansiCyan    = "\033[36m"
)

// console is the line oriented front end of a Controller. Log entries are printed as they are appended, from
// whichever goroutine appended them, so every write to out goes through mu.
type console struct {
	ctrl    *wsconsole.Controller
	out     io.Writer
	mu      sync.Mutex
	color   bool
	address string
}

func newConsole(ctrl *wsconsole.Controller, out io.Writer, color bool) *console {
	c := &console{ctrl: ctrl, out: out, color: color}
	ctrl.OnLogEntry(c.printEntry)
	return c
}

// run reads commands from in until it is exhausted, /quit is entered or ctx is done.
func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errC := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errC <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errC:
					return errors.Wrap(err, "cannot read input")
				default:
					return nil
				}
			}
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs a single input line and reports whether the console should exit.
func (c *console) handle(ctx context.Context, line string) bool {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		c.send(line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/connect":
		if arg != "" {
			c.address = arg
		}
		c.connect(ctx)
	case "/address":
		c.address = arg
		if _, err := wsconsole.ValidateAddress(arg); err != nil {
			c.printf("address: %s\n", err)
		}
	case "/echo":
		c.address = wsconsole.EchoAddress
		c.printf("address: %s\n", c.address)
	case "/disconnect":
		c.ctrl.Disconnect()
	case "/send":
		c.send(arg)
	case "/clear":
		c.ctrl.ClearLog()
	case "/log":
		for _, entry := range c.ctrl.Log().Snapshot() {
			c.printEntry(entry)
		}
	case "/status":
		c.printf("%s %s\n", c.ctrl.Status(), c.ctrl.TargetAddress())
	case "/help":
		c.printf("%s", commandHelp)
	case "/quit", "/exit":
		return true
	default:
		c.printf("unknown command %s, try /help\n", cmd)
	}

	return false
}

func (c *console) connect(ctx context.Context) {
	address, err := wsconsole.ValidateAddress(c.address)
	if err != nil {
		c.printf("address: %s\n", err)
		return
	}

	if err := c.ctrl.Connect(ctx, address); err != nil {
		c.printf("connect: %s\n", err)
	}
}

func (c *console) send(text string) {
	if err := c.ctrl.Send(text); err != nil {
		if errors.Is(err, wsconsole.ErrNotConnected) {
			c.printf("not connected, use /connect first\n")
			return
		}
		c.printf("send: %s\n", err)
	}
}

func (c *console) printEntry(entry wsconsole.LogEntry) {
	if !c.color {
		c.printf("%s\n", entry.Text)
		return
	}
	c.printf("%s%s%s\n", entryColor(entry), entry.Text, ansiReset)
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, format, args...)
}

func entryColor(entry wsconsole.LogEntry) string {
	switch entry.Category {
	case wsconsole.CategorySuccess:
		return ansiGreen
	case wsconsole.CategoryError:
		if entry.Event == wsconsole.EventErrored {
			return ansiDarkRed
		}
		return ansiRed
	case wsconsole.CategoryInfo:
		return ansiCyan
	default:
		return ansiGrey
	}
}
