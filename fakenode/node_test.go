package fakenode

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/YuriyNasretdinov/ipfsprobe/protocol"
)

var testIdentity = protocol.NodeID{ID: "QmFake", Addresses: []string{"/ip4/127.0.0.1/tcp/4001"}}

func doPost(t *testing.T, url string, contentType string, body []byte) (int, []byte) {
	t.Helper()

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	req.SetBody(body)

	if err := fasthttp.Do(req, resp); err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}

	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

func TestID(t *testing.T) {
	_, addr := StartTestNode(t, testIdentity)

	status, body := doPost(t, "http://"+addr+"/api/v0/id", "", nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("POST /id status = %d; want %d", status, fasthttp.StatusOK)
	}

	var got protocol.NodeID
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decoding /id response %q: %v", body, err)
	}

	if !reflect.DeepEqual(got, testIdentity) {
		t.Errorf("POST /id = %+v; want %+v", got, testIdentity)
	}
}

func TestAddSeveralFiles(t *testing.T) {
	n, addr := StartTestNode(t, testIdentity)

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for _, name := range []string{"first.txt", "second.txt"} {
		fw, err := w.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write([]byte("contents of " + name))
	}
	w.Close()

	status, body := doPost(t, "http://"+addr+"/api/v0/add", w.FormDataContentType(), b.Bytes())
	if status != fasthttp.StatusOK {
		t.Fatalf("POST /add status = %d, body %q; want %d", status, body, fasthttp.StatusOK)
	}

	if lines := bytes.Count(body, []byte("\n")); lines != 2 {
		t.Errorf("POST /add returned %d lines; want %d", lines, 2)
	}

	last, err := protocol.ParseAddResponse(body)
	if err != nil {
		t.Fatalf("ParseAddResponse() = ..., %v; want no errors", err)
	}

	want, _ := protocol.RawCID([]byte("contents of second.txt"))
	if last.Hash != want.String() || last.Name != "second.txt" {
		t.Errorf("last add record = %+v; want second.txt with hash %s", last, want)
	}

	if _, ok := n.Blob(want.String()); !ok {
		t.Errorf("Blob(%s) not found after add", want)
	}
}

func TestAddWithoutFile(t *testing.T) {
	_, addr := StartTestNode(t, testIdentity)

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	w.WriteField("pin", "true")
	w.Close()

	status, _ := doPost(t, "http://"+addr+"/api/v0/add", w.FormDataContentType(), b.Bytes())
	if status != fasthttp.StatusBadRequest {
		t.Errorf("POST /add without file status = %d; want %d", status, fasthttp.StatusBadRequest)
	}
}

func TestPinAdd(t *testing.T) {
	n, addr := StartTestNode(t, testIdentity)

	status, body := doPost(t, "http://"+addr+"/api/v0/pin/add?arg=QmABC", "", nil)
	if status != fasthttp.StatusOK {
		t.Fatalf("POST /pin/add status = %d; want %d", status, fasthttp.StatusOK)
	}

	var got protocol.PinResult
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decoding /pin/add response %q: %v", body, err)
	}

	if want := []string{"QmABC"}; !reflect.DeepEqual(got.Pins, want) {
		t.Errorf("POST /pin/add pins = %v; want %v", got.Pins, want)
	}

	if pins := n.Pins(); !reflect.DeepEqual(pins, []string{"QmABC"}) {
		t.Errorf("Pins() = %v; want [QmABC]", pins)
	}
}

func TestErrors(t *testing.T) {
	n, addr := StartTestNode(t, testIdentity)

	testCases := []struct {
		path   string
		status int
	}{
		{path: "/", status: fasthttp.StatusNotFound},
		{path: "/api/v0/", status: fasthttp.StatusNotFound},
		{path: "/api/v0/swarm/peers", status: fasthttp.StatusNotFound},
		{path: "/api/v0/pin/add", status: fasthttp.StatusBadRequest},
	}

	for _, tc := range testCases {
		status, body := doPost(t, "http://"+addr+tc.path, "", nil)
		if status != tc.status {
			t.Errorf("POST %s status = %d; want %d", tc.path, status, tc.status)
		}

		var e protocol.ErrorResponse
		if err := json.Unmarshal(body, &e); err != nil || e.Message == "" || e.Type != "error" {
			t.Errorf("POST %s body = %q; want daemon error JSON", tc.path, body)
		}
	}

	statusCode, _, err := fasthttp.Get(nil, "http://"+addr+"/api/v0/id")
	if err != nil {
		t.Fatalf("GET /id: %v", err)
	}

	if statusCode != fasthttp.StatusMethodNotAllowed {
		t.Errorf("GET /id status = %d; want %d", statusCode, fasthttp.StatusMethodNotAllowed)
	}

	if n.Calls("id") != 1 {
		t.Errorf("Calls(id) = %d; want 1", n.Calls("id"))
	}
}

func TestFailNext(t *testing.T) {
	n, addr := StartTestNode(t, testIdentity)

	n.FailNext(fasthttp.StatusBadGateway, 2)

	for i, want := range []int{fasthttp.StatusBadGateway, fasthttp.StatusBadGateway, fasthttp.StatusOK} {
		if status, _ := doPost(t, "http://"+addr+"/api/v0/id", "", nil); status != want {
			t.Errorf("request #%d status = %d; want %d", i+1, status, want)
		}
	}

	if total := n.TotalCalls(); total != 3 {
		t.Errorf("TotalCalls() = %d; want 3", total)
	}
}

func TestShutdownWithIdleKeepAlive(t *testing.T) {
	n := New(nil, testIdentity)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	go n.Serve(ln)
	WaitForPort(t, ln.Addr().String())

	// The transport keeps the connection open after the response.
	cl := &http.Client{Transport: &http.Transport{IdleConnTimeout: time.Minute}}
	defer cl.CloseIdleConnections()

	resp, err := cl.Post("http://"+ln.Addr().String()+"/api/v0/id", "", nil)
	if err != nil {
		t.Fatalf("POST /id: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	done := make(chan error, 1)
	go func() { done <- n.Shutdown() }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Shutdown() did not return with an idle keep-alive connection open")
	}
}
