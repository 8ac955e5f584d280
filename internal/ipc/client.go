package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(serviceName+"."+method, req, resp)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues files from paths on the daemon host.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.call("Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns jobs optionally filtered by statuses.
func (c *Client) List(statuses []string) (*ListResponse, error) {
	var resp ListResponse
	if err := c.call("List", ListRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Describe returns details for a single job.
func (c *Client) Describe(id string) (*DescribeResponse, error) {
	var resp DescribeResponse
	if err := c.call("Describe", DescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Retry retries failed jobs.
func (c *Client) Retry(ids []string) (*RetryResponse, error) {
	var resp RetryResponse
	if err := c.call("Retry", RetryRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove deletes jobs in any state.
func (c *Client) Remove(ids []string) (*RemoveResponse, error) {
	var resp RemoveResponse
	if err := c.call("Remove", RemoveRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Capacity returns storage usage.
func (c *Client) Capacity() (*CapacityResponse, error) {
	var resp CapacityResponse
	if err := c.call("Capacity", CapacityRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Settings returns the global selection.
func (c *Client) Settings() (*SettingsResponse, error) {
	var resp SettingsResponse
	if err := c.call("Settings", SettingsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateSettings changes the global selection.
func (c *Client) UpdateSettings(req UpdateSettingsRequest) (*SettingsResponse, error) {
	var resp SettingsResponse
	if err := c.call("UpdateSettings", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
