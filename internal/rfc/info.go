package rfc

import (
	"context"
	"fmt"
)

// pingFunction is the remote echo function used to verify connectivity.
const pingFunction = "STFC_CONNECTION"

type (
	pingParams struct {
		ReqText string `json:"REQUTEXT"`
	}
	pingResult struct {
		EchoText string `json:"ECHOTEXT"`
		RespText string `json:"RESPTEXT"`
	}
)

// Ping round-trips a short text through the remote echo function and fails
// when the echo does not match.
func (c *Client) Ping(ctx context.Context) error {
	const text = "Connection Test"
	var res pingResult
	if err := c.Call(ctx, pingFunction, pingParams{ReqText: text}, &res); err != nil {
		return err
	}
	if res.EchoText != text {
		return fmt.Errorf("rfc: ping echo mismatch: got %q", res.EchoText)
	}
	return nil
}

// Attributes fetches the gateway's connection attributes (system ID, host,
// release, ...) for diagnostic responses.
func (c *Client) Attributes(ctx context.Context) (map[string]string, error) {
	attrs := map[string]string{}
	if err := c.get(ctx, c.baseURL+"/attributes", &attrs); err != nil {
		return nil, fmt.Errorf("rfc: connection attributes: %w", err)
	}
	return attrs, nil
}
