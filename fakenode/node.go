// Package fakenode implements the subset of the IPFS daemon HTTP API
// that the probe talks to. Blobs and pins live in memory.
package fakenode

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/YuriyNasretdinov/ipfsprobe/protocol"
)

const (
	apiPrefix   = "/api/v0"
	idleTimeout = time.Second
)

// Node is a fake IPFS daemon.
type Node struct {
	logger *log.Logger
	srv    *fasthttp.Server

	mu         sync.Mutex
	identity   protocol.NodeID
	addBody    []byte
	blobs      map[string][]byte
	pins       map[string]bool
	calls      map[string]int
	lastPinArg string
	failStatus int
	failLeft   int
}

// New creates *Node that reports the provided identity.
func New(logger *log.Logger, identity protocol.NodeID) *Node {
	if logger == nil {
		logger = log.Default()
	}

	n := &Node{
		logger:   logger,
		identity: identity,
		blobs:    make(map[string][]byte),
		pins:     make(map[string]bool),
		calls:    make(map[string]int),
	}

	// Idle keep-alive connections must not hold Shutdown up.
	n.srv = &fasthttp.Server{
		Handler:         n.Handler,
		Name:            "fake-ipfsd",
		IdleTimeout:     idleTimeout,
		CloseOnShutdown: true,
	}

	return n
}

// SetAddResponse makes `add` return the body as is instead of
// storing the uploaded file. A nil body restores the default behaviour.
func (n *Node) SetAddResponse(body []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.addBody = body
}

// FailNext makes the next cnt requests fail with the HTTP status.
func (n *Node) FailNext(status int, cnt int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failStatus = status
	n.failLeft = cnt
}

// Calls returns how many requests were made to the command, e.g. "pin/add".
func (n *Node) Calls(command string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[command]
}

// TotalCalls returns how many requests were made in total.
func (n *Node) TotalCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	total := 0
	for _, c := range n.calls {
		total += c
	}
	return total
}

// LastPinArg returns the `arg` of the last `pin/add` request.
func (n *Node) LastPinArg() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastPinArg
}

// Pins returns the sorted list of pinned CIDs.
func (n *Node) Pins() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	res := make([]string, 0, len(n.pins))
	for c := range n.pins {
		res = append(res, c)
	}
	sort.Strings(res)
	return res
}

// Blob returns the contents stored under the CID.
func (n *Node) Blob(cid string) ([]byte, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, ok := n.blobs[cid]
	return b, ok
}

// Handler serves the API requests.
func (n *Node) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	if len(path) <= len(apiPrefix)+1 || path[:len(apiPrefix)+1] != apiPrefix+"/" {
		writeError(ctx, fasthttp.StatusNotFound, "404 page not found")
		return
	}
	command := path[len(apiPrefix)+1:]

	if status, fail := n.countCall(command); fail {
		writeError(ctx, status, fmt.Sprintf("injected failure with status %d", status))
		return
	}

	if !ctx.IsPost() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, fmt.Sprintf("405 - Method Not Allowed: %s", ctx.Method()))
		return
	}

	switch command {
	case "id":
		n.idHandler(ctx)
	case "add":
		n.addHandler(ctx)
	case "pin/add":
		n.pinAddHandler(ctx)
	default:
		writeError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("unknown command %q", command))
	}
}

func (n *Node) countCall(command string) (status int, fail bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls[command]++

	if n.failLeft > 0 {
		n.failLeft--
		return n.failStatus, true
	}

	return 0, false
}

func (n *Node) idHandler(ctx *fasthttp.RequestCtx) {
	n.mu.Lock()
	identity := n.identity
	n.mu.Unlock()

	writeJSON(ctx, identity)
}

func (n *Node) addHandler(ctx *fasthttp.RequestCtx) {
	n.mu.Lock()
	override := n.addBody
	n.mu.Unlock()

	if override != nil {
		ctx.SetContentType("application/json")
		ctx.Write(override)
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, fmt.Sprintf("parsing multipart form: %v", err))
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "argument \"path\" is required")
		return
	}

	var records []protocol.AddedObject

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
			return
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
			return
		}

		id, err := protocol.RawCID(data)
		if err != nil {
			writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
			return
		}

		n.mu.Lock()
		n.blobs[id.String()] = data
		n.mu.Unlock()

		records = append(records, protocol.AddedObject{
			Name: fh.Filename,
			Hash: id.String(),
			Size: fmt.Sprint(len(data)),
		})
	}

	ctx.SetContentType("application/json")
	ctx.Response.Header.Set("X-Chunked-Output", "1")

	enc := json.NewEncoder(ctx)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			n.logger.Printf("error encoding add record: %v", err)
			return
		}
	}
}

func (n *Node) pinAddHandler(ctx *fasthttp.RequestCtx) {
	arg := string(ctx.QueryArgs().Peek("arg"))
	if arg == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "argument \"ipfs-path\" is required")
		return
	}

	n.mu.Lock()
	n.lastPinArg = arg
	n.pins[arg] = true
	n.mu.Unlock()

	writeJSON(ctx, protocol.PinResult{Pins: []string{arg}})
}

func writeJSON(ctx *fasthttp.RequestCtx, v interface{}) {
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(v)
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	ctx.SetStatusCode(status)
	writeJSON(ctx, protocol.ErrorResponse{Message: msg, Code: 0, Type: "error"})
}

// Serve accepts HTTP connections on the listener.
func (n *Node) Serve(ln net.Listener) error {
	return n.srv.Serve(ln)
}

// ListenAndServe listens on the TCP address and serves HTTP connections.
func (n *Node) ListenAndServe(addr string) error {
	return n.srv.ListenAndServe(addr)
}

// Shutdown stops the server.
func (n *Node) Shutdown() error {
	return n.srv.Shutdown()
}
