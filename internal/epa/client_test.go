package epa_test

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunbeam-ops/cloudcheck/internal/core/errs"
	"github.com/sunbeam-ops/cloudcheck/internal/epa"
	"github.com/tidwall/gjson"
)

// fakeServer answers one request per connection with a canned reply and
// records the request payloads it saw.
type fakeServer struct {
	t        *testing.T
	path     string
	reply    string
	requests chan string
}

func newFakeServer(t *testing.T, reply string) *fakeServer {
	t.Helper()

	s := &fakeServer{
		t:        t,
		path:     filepath.Join(t.TempDir(), "epa.sock"),
		reply:    reply,
		requests: make(chan string, 8),
	}

	listener, err := net.Listen("unix", s.path)
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			buf := make([]byte, 4096)
			n, err := conn.Read(buf)
			if err == nil {
				s.requests <- string(buf[:n])
				_, _ = conn.Write([]byte(s.reply))
			}
			conn.Close()
		}
	}()
	return s
}

func (s *fakeServer) lastRequest() string {
	select {
	case request := <-s.requests:
		return request
	case <-time.After(time.Second):
		s.t.Fatal("no request received")
		return ""
	}
}

func TestAllocateCores(t *testing.T) {
	server := newFakeServer(t, `{"message": "4 cores allocated", "cores_allocated": "1,2,3,4"}`)
	client := epa.New(server.path)

	cores, err := client.AllocateCores(context.Background(), "cloudcheck", 4, nil)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, cores)

	request := gjson.Parse(server.lastRequest())
	assert.Equal(t, "1.0", request.Get("version").String())
	assert.Equal(t, "cloudcheck", request.Get("service_name").String())
	assert.Equal(t, "allocate_cores", request.Get("action").String())
	assert.Equal(t, int64(4), request.Get("num_of_cores").Int())
	assert.False(t, request.Get("numa_node").Exists())
}

func TestAllocateCores_NUMANode(t *testing.T) {
	server := newFakeServer(t, `{"cores_allocated": "8-11"}`)
	client := epa.New(server.path)
	node := 1

	cores, err := client.AllocateCores(context.Background(), "cloudcheck", 4, &node)

	require.NoError(t, err)
	assert.Equal(t, []int{8, 9, 10, 11}, cores)

	request := gjson.Parse(server.lastRequest())
	assert.Equal(t, "explicitly_allocate_numa_cores", request.Get("action").String())
	assert.Equal(t, int64(1), request.Get("numa_node").Int())
}

func TestAllocateCores_ErrorReply(t *testing.T) {
	server := newFakeServer(t, `{"error": "not enough free cores"}`)
	client := epa.New(server.path)

	_, err := client.AllocateCores(context.Background(), "cloudcheck", 64, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSystem)
	assert.Contains(t, err.Error(), "not enough free cores")
}

func TestAllocateCores_MissingField(t *testing.T) {
	server := newFakeServer(t, `{"message": "ok"}`)
	client := epa.New(server.path)

	_, err := client.AllocateCores(context.Background(), "cloudcheck", 2, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSystem)
}

func TestAllocateCores_InvalidReply(t *testing.T) {
	server := newFakeServer(t, `not json at all`)
	client := epa.New(server.path)

	_, err := client.AllocateCores(context.Background(), "cloudcheck", 2, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSystem)
}

func TestAllocateCores_NoSocket(t *testing.T) {
	client := epa.New(filepath.Join(t.TempDir(), "missing.sock"))

	_, err := client.AllocateCores(context.Background(), "cloudcheck", 2, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConnection)
}

func TestAllocateHugepages(t *testing.T) {
	server := newFakeServer(t, `{"message": "hugepages allocated"}`)
	client := epa.New(server.path)

	err := client.AllocateHugepages(context.Background(), "cloudcheck", 512, 2048, 0)

	require.NoError(t, err)

	request := gjson.Parse(server.lastRequest())
	assert.Equal(t, "allocate_hugepages", request.Get("action").String())
	assert.Equal(t, int64(512), request.Get("hugepages_requested").Int())
	assert.Equal(t, int64(2048), request.Get("size_kb").Int())
	assert.Equal(t, int64(0), request.Get("node_id").Int())
}

func TestParseCoreList(t *testing.T) {
	tests := []struct {
		input string
		want  []int
	}{
		{"3", []int{3}},
		{"1,2,3", []int{1, 2, 3}},
		{"1-4", []int{1, 2, 3, 4}},
		{"1-4,9-12", []int{1, 2, 3, 4, 9, 10, 11, 12}},
		{"0, 2, 4-5", []int{0, 2, 4, 5}},
	}
	for _, tt := range tests {
		cores, err := epa.ParseCoreList(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, cores, tt.input)
	}
}

func TestParseCoreList_Invalid(t *testing.T) {
	for _, input := range []string{"", "  ", "a", "1-", "-3", "4-2", "1,,2"} {
		_, err := epa.ParseCoreList(input)
		assert.Error(t, err, input)
		assert.ErrorIs(t, err, errs.ErrInvalidInput, input)
	}
}
