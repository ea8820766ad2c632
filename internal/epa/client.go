// Package epa is a client for the Enhanced Platform Awareness (EPA)
// orchestrator, used to reserve resources such as cpu cores or huge pages
// before heavyweight check runs. The service speaks newline-free JSON over
// a unix stream socket, one request and one reply per connection.
package epa

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/sunbeam-ops/cloudcheck/internal/core/errs"
	"github.com/sunbeam-ops/cloudcheck/internal/core/logger"
	"github.com/sunbeam-ops/cloudcheck/internal/core/ports"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DefaultSocketPath is where the epa-orchestrator snap exposes its socket.
const DefaultSocketPath = "/var/snap/epa-orchestrator/current/data/epa.sock"

// protocolVersion of the EPA request format.
const protocolVersion = "1.0"

// replyLimit bounds how much of a reply is read.
const replyLimit = 4096

// Client talks to the EPA service over its unix socket.
type Client struct {
	socketPath string
	logger     *zap.Logger
}

// New creates a client for the given socket path; empty means the default.
func New(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Client{
		socketPath: socketPath,
		logger:     logger.Named("epa"),
	}
}

// AllocateCores reserves the specified amount of cores, optionally pinned
// to a NUMA node, and returns the reserved core IDs.
func (c *Client) AllocateCores(ctx context.Context, serviceName string, coreCount int, numaNode *int) ([]int, error) {
	request := map[string]interface{}{
		"version":      protocolVersion,
		"service_name": serviceName,
		"action":       "allocate_cores",
		"num_of_cores": coreCount,
	}
	if numaNode != nil {
		request["numa_node"] = *numaNode
		// NUMA-aware allocation is a separate action until the EPA API
		// consolidates the two.
		request["action"] = "explicitly_allocate_numa_cores"
	}

	reply, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}

	allocated := gjson.GetBytes(reply, "cores_allocated")
	if !allocated.Exists() {
		return nil, fmt.Errorf("%w: EPA reply missing cores_allocated", errs.ErrSystem)
	}
	return ParseCoreList(allocated.String())
}

// AllocateHugepages reserves huge pages on a NUMA node.
func (c *Client) AllocateHugepages(ctx context.Context, serviceName string, pages, sizeKB, numaNode int) error {
	request := map[string]interface{}{
		"version":             protocolVersion,
		"service_name":        serviceName,
		"action":              "allocate_hugepages",
		"hugepages_requested": pages,
		"size_kb":             sizeKB,
		"node_id":             numaNode,
	}
	_, err := c.send(ctx, request)
	return err
}

func (c *Client) send(ctx context.Context, request map[string]interface{}) ([]byte, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	c.logger.Debug("EPA request", zap.ByteString("payload", payload))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to connect to EPA service socket %s: %v",
			errs.ErrConnection, c.socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("%w: EPA request write failed: %v", errs.ErrConnection, err)
	}

	buf := make([]byte, replyLimit)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: EPA reply read failed: %v", errs.ErrConnection, err)
	}
	reply := buf[:n]
	c.logger.Debug("EPA reply", zap.ByteString("payload", reply))

	if !gjson.ValidBytes(reply) {
		return nil, fmt.Errorf("%w: EPA reply is not valid JSON", errs.ErrSystem)
	}
	// Not every failure reply carries this field, but when it does the
	// request did not succeed.
	if errField := gjson.GetBytes(reply, "error"); errField.Exists() && errField.String() != "" {
		return nil, fmt.Errorf("%w: EPA request failed: %s", errs.ErrSystem, errField.String())
	}

	return reply, nil
}

// ParseCoreList expands core lists returned by the EPA service:
// "1,2,3" -> [1 2 3], "1-4,9-12" -> [1 2 3 4 9 10 11 12].
func ParseCoreList(coreList string) ([]int, error) {
	if strings.TrimSpace(coreList) == "" {
		return nil, fmt.Errorf("%w: empty core list", errs.ErrInvalidInput)
	}
	var cores []int
	for _, part := range strings.Split(coreList, ",") {
		part = strings.TrimSpace(part)
		if start, end, ok := strings.Cut(part, "-"); ok {
			first, err := strconv.Atoi(start)
			if err != nil {
				return nil, fmt.Errorf("%w: bad core range %q", errs.ErrInvalidInput, part)
			}
			last, err := strconv.Atoi(end)
			if err != nil || last < first {
				return nil, fmt.Errorf("%w: bad core range %q", errs.ErrInvalidInput, part)
			}
			for core := first; core <= last; core++ {
				cores = append(cores, core)
			}
			continue
		}
		core, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: bad core id %q", errs.ErrInvalidInput, part)
		}
		cores = append(cores, core)
	}
	return cores, nil
}

var _ ports.Reserver = (*Client)(nil)
