// Console is an optional pty-backed out-of-band control channel for
// cmd/wavepod-sim's --debug-console flag, grounded on
// doismellburning-samoyed's kiss.go pseudo-terminal setup
// (kisspt_open_pt/kisspt_listen_thread): open a pty pair, hand the
// slave's name to the operator, and read single characters from the
// master side in a background goroutine without disturbing the
// process's real stdin. This replaces the teacher's bigger,
// GUI-attached debugger with just the out-of-band channel it needs.
package hostio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/creack/pty"
)

// Console reads single-character commands from a pseudo-terminal.
type Console struct {
	master *os.File
	slave  *os.File

	mu      sync.Mutex
	closed  bool
	onInput func(byte)
}

// NewConsole opens a pty pair and starts a background reader. onInput
// is invoked once per received byte; it must not block since it runs
// on the console's single read goroutine.
func NewConsole(onInput func(byte)) (*Console, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("hostio: opening debug console pty: %w", err)
	}
	c := &Console{master: master, slave: slave, onInput: onInput}
	go c.readLoop()
	return c, nil
}

// SlaveName is the path the operator connects to (e.g. with `screen`
// or `cat`) to drive the console.
func (c *Console) SlaveName() string {
	return c.slave.Name()
}

func (c *Console) readLoop() {
	r := bufio.NewReader(c.master)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err != io.EOF {
				return
			}
			return
		}
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		if c.onInput != nil {
			c.onInput(b)
		}
	}
}

// Write sends bytes to whatever is connected to the slave side.
func (c *Console) Write(p []byte) (int, error) {
	return c.master.Write(p)
}

// Close closes both ends of the pty pair.
func (c *Console) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	err1 := c.master.Close()
	err2 := c.slave.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
