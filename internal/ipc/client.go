package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client communicates with the daemon over a Unix domain socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client that connects to the given socket path.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

// Ping tests if the daemon is alive.
func (c *Client) Ping() error {
	_, err := c.send(Request{Command: CmdPing})
	return err
}

// Status returns the daemon's status data.
func (c *Client) Status() (*StatusData, error) {
	var status StatusData
	if err := c.call(Request{Command: CmdStatus}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Report asks the daemon for a report built with args and decodes it into
// out, which should be a *report.Report.
func (c *Client) Report(args map[string]string, out interface{}) error {
	return c.call(Request{Command: CmdReport, Args: args}, out)
}

// Refresh asks the daemon to re-import its snapshot source now.
func (c *Client) Refresh() (*RefreshData, error) {
	var data RefreshData
	if err := c.call(Request{Command: CmdRefresh}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// RequestStop asks the daemon to shut down gracefully.
func (c *Client) RequestStop() error {
	_, err := c.send(Request{Command: CmdStop})
	return err
}

// call sends req and decodes the response data into out.
func (c *Client) call(req Request, out interface{}) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}

	// resp.Data is generic JSON; re-marshal it into the typed value.
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("marshal %s data: %w", req.Command, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", req.Command, err)
	}
	return nil
}

// send dials the socket, sends a JSON request, reads the JSON response.
func (c *Client) send(req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	// Reports can exceed a scanner's line limit, so decode the stream.
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if !resp.OK {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}
