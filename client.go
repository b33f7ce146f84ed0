// Package amt8000 talks to Intelbras AMT alarm panels over their ISECNet v2
// TCP protocol.
package amt8000

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/caarlos0/sync/cio"
	logp "github.com/charmbracelet/log"
	"github.com/j-keck/arping"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "isecnetv2",
})

// SetLogLevel changes the level of the package logger.
func SetLogLevel(level logp.Level) {
	log.SetLevel(level)
}

const DefaultTimeout = 5 * time.Second

const AllPartitions = 0xff

const (
	cmdAuth       = 0xf0f0
	cmdDisconnect = 0xf0f1
	cmdStatus     = 0x0b4a
	cmdArm        = 0x401e
)

type State byte

const (
	StateDisarmed State = 0x00
	StatePartial  State = 0x01
	StateArmed    State = 0x03 // one must ask what 0x02 is... and why its missing...
)

const (
	subCmdDisarm = 0x00
	subCmdArm    = 0x01
)

func (s State) String() string {
	switch s {
	case StateDisarmed:
		return "Disarmed"
	case StatePartial:
		return "Partial"
	case StateArmed:
		return "Armed"
	default:
		return "Unknown"
	}
}

var errNotConnected = errors.New("not connected")

// Client is a single session with the panel.
//
// The panel does not cope with interleaved requests, so a Client is not safe
// for concurrent use: callers must serialize access to it.
type Client struct {
	conn          net.Conn
	addr          string
	timeout       time.Duration
	authenticated bool
}

// New creates a client for the panel at host:port. It does not dial.
func New(host, port string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		addr:    net.JoinHostPort(host, port),
		timeout: timeout,
	}
}

func MacAddress(ip string) (string, error) {
	hw, _, err := arping.Ping(net.ParseIP(ip))
	if err != nil {
		return "", fmt.Errorf("could not get the mac address: %w", err)
	}
	return hw.String(), nil
}

// Connect dials the panel, dropping the previous connection if there was one.
// The new connection is not authenticated.
func (c *Client) Connect() error {
	c.drop()
	log.Debug("connect", "addr", c.addr)
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return commErr("connect", err)
	}
	c.conn = conn
	return nil
}

func (c *Client) Auth(pass string) error {
	log.Debug("auth")
	if c.conn == nil {
		return commErr("auth", errNotConnected)
	}
	c.authenticated = false
	payload, err := makeAuthPayload(pass)
	if err != nil {
		return err
	}
	if err := c.write(payload); err != nil {
		return commErr("auth", err)
	}
	resp, err := c.readFrame()
	if err != nil {
		return commErr("auth", err)
	}
	if err := parseAuthResponse(resp); err != nil {
		return err
	}
	c.authenticated = true
	return nil
}

func (c *Client) Authenticated() bool {
	return c.authenticated
}

func (c *Client) Status() (Status, error) {
	log.Debug("status")
	if err := c.ready(); err != nil {
		return Status{}, err
	}
	if err := c.write(makePayload(cmdStatus, nil)); err != nil {
		return Status{}, commErr("gather status", err)
	}
	resp, err := c.readFrame()
	if err != nil {
		return Status{}, commErr("gather status", err)
	}
	_, reply := parseResponse(resp)
	return statusFromBytes(reply)
}

func (c *Client) Disarm(partition byte) error {
	log.Debug("disarm", "partition", partition)
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.write(makePayload(cmdArm, []byte{partition, subCmdDisarm})); err != nil {
		return commErr("disarm", err)
	}
	return nil
}

func (c *Client) Arm(partition byte) error {
	log.Debug("arm", "partition", partition)
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.write(makePayload(cmdArm, []byte{partition, subCmdArm})); err != nil {
		return commErr(fmt.Sprintf("arm %v", partition), err)
	}

	resp, err := c.readFrame()
	if err != nil {
		return commErr(fmt.Sprintf("arm %v", partition), err)
	}

	cmd, _ := parseResponse(resp)
	switch cmd >> 8 {
	case 0xf0:
		return ErrOpenZones
	case 0x40:
		return nil
	}
	return fmt.Errorf("%w: unknown response:\n%s", ErrCommunication, hex.Dump(resp))
}

// Close says goodbye to the panel and closes the connection.
// Closing a client that is not connected is a no-op.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	defer func() {
		c.conn = nil
		c.authenticated = false
	}()
	if err := c.write(makePayload(cmdDisconnect, nil)); err != nil {
		_ = c.conn.Close()
		return commErr("disconnect", err)
	}
	return c.conn.Close()
}

func (c *Client) drop() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		log.Debug("could not close stale connection", "err", err)
	}
	c.conn = nil
	c.authenticated = false
}

func (c *Client) ready() error {
	if c.conn == nil {
		return commErr("send command", errNotConnected)
	}
	if !c.authenticated {
		return ErrNotAuthenticated
	}
	return nil
}

func (c *Client) write(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	_, err := c.conn.Write(payload)
	return err
}

// readFrame reads one reply: the fixed header, then as many octets as the
// length field says, plus the checksum.
func (c *Client) readFrame() ([]byte, error) {
	r := cio.TimeoutReader(c.conn, c.timeout)
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	rest := make([]byte, mergeOctets(header[4:6])+1)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}
	return append(header, rest...), nil
}
