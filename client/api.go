package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/YuriyNasretdinov/ipfsprobe/protocol"
)

// ID returns the identity of the daemon.
func (r *Raw) ID(ctx context.Context) (protocol.NodeID, error) {
	body, err := r.Call(ctx, "id", nil, nil, nil)
	if err != nil {
		return protocol.NodeID{}, err
	}

	var res protocol.NodeID
	if err := json.Unmarshal(body, &res); err != nil {
		return protocol.NodeID{}, &APIError{Command: "id", Err: fmt.Errorf("decoding response: %w", err)}
	}

	if r.debug {
		r.logger().Printf("ID() returned %+v", res)
	}

	return res, nil
}

// Add uploads data as a single file and returns the final record of the response.
func (r *Raw) Add(ctx context.Context, name string, data []byte) (protocol.AddedObject, error) {
	body, err := r.Call(ctx, "add", &File{Name: name, Data: data}, nil, nil)
	if err != nil {
		return protocol.AddedObject{}, err
	}

	res, err := protocol.ParseAddResponse(body)
	if err != nil {
		return protocol.AddedObject{}, &APIError{Command: "add", Err: err}
	}

	if r.debug {
		r.logger().Printf("Add(%q) returned %+v", name, res)
	}

	return res, nil
}

// PinAdd pins the object so that the daemon does not garbage-collect it.
func (r *Raw) PinAdd(ctx context.Context, cid string) (protocol.PinResult, error) {
	u := url.Values{}
	u.Add("arg", cid)

	body, err := r.Call(ctx, "pin/add", nil, nil, u)
	if err != nil {
		return protocol.PinResult{}, err
	}

	var res protocol.PinResult
	if err := json.Unmarshal(body, &res); err != nil {
		return protocol.PinResult{}, &APIError{Command: "pin/add", Err: fmt.Errorf("decoding response: %w", err)}
	}

	return res, nil
}
