// Package lwm2mtest provides a scripted management server for tests.
//
// Each device holds a script of values per resource. Reads step through the
// script and repeat its last value once exhausted, which is how the tests
// describe a device moving through download statuses:
//
//	srv := lwm2mtest.NewServer()
//	defer srv.Close()
//	srv.AddDevice("dev-1").
//		Script("5/0/3", 0, 1, 1, 2).
//		Script("5/0/5", 0, 0, 1)
//
//	client := lwm2m.NewClient(srv.URL)
package lwm2mtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/muurk/leshan-fleet/internal/lwm2m"
)

// Unavailable in a script makes that read answer 404
var Unavailable = unavailable{}

type unavailable struct{}

// Request is one call received by the server
type Request struct {
	Method string
	Path   lwm2m.Path // zero for the client listing
	Value  any        // decoded write value
}

// Server is an httptest server speaking the management REST API
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	hook       func(r Request)
	devices    map[string]*Device
	order      []string
	requests   []Request
	listStatus int
}

// Device is the scripted state of one endpoint
type Device struct {
	mu         sync.Mutex
	scripts    map[string][]any
	reads      map[string]int
	writes     map[string][]any
	rejectPut  map[string]int
	rejectPost map[string]int
}

// NewServer starts a server with no devices
func NewServer() *Server {
	s := &Server{devices: make(map[string]*Device)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// AddDevice registers an endpoint, or returns it if already present
func (s *Server) AddDevice(endpoint string) *Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.devices[endpoint]; ok {
		return d
	}
	d := &Device{
		scripts:    make(map[string][]any),
		reads:      make(map[string]int),
		writes:     make(map[string][]any),
		rejectPut:  make(map[string]int),
		rejectPost: make(map[string]int),
	}
	s.devices[endpoint] = d
	s.order = append(s.order, endpoint)
	return d
}

// RemoveDevice deregisters an endpoint. Later requests for it answer 404.
func (s *Server) RemoveDevice(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, endpoint)
	for i, ep := range s.order {
		if ep == endpoint {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// OnRequest installs fn to be called for every resource request after it
// is recorded and before it is answered
func (s *Server) OnRequest(fn func(r Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// FailListing makes the client listing answer status
func (s *Server) FailListing(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listStatus = status
}

// Requests returns a copy of every resource request received
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and "endpoint/o/i/r"
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path.String() == path {
			n++
		}
	}
	return n
}

// Script sets the values successive reads of key ("o/i/r") return
func (d *Device) Script(key string, values ...any) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts[key] = values
	d.reads[key] = 0
	return d
}

// RejectWrite makes writes to key answer status
func (d *Device) RejectWrite(key string, status int) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejectPut[key] = status
	return d
}

// RejectExecute makes executes of key answer status
func (d *Device) RejectExecute(key string, status int) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejectPost[key] = status
	return d
}

// Reads returns how many reads of key were answered
func (d *Device) Reads(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads[key]
}

// Writes returns the accepted write values for key
func (d *Device) Writes(key string) []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]any(nil), d.writes[key]...)
}

func (d *Device) read(key string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	script := d.scripts[key]
	if len(script) == 0 {
		return nil, false
	}
	i := d.reads[key]
	d.reads[key] = i + 1
	if i >= len(script) {
		i = len(script) - 1
	}
	v := script[i]
	if _, ok := v.(unavailable); ok {
		return nil, false
	}
	return v, true
}

// write records an accepted value; later reads return it
func (d *Device) write(key string, value any) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if status, ok := d.rejectPut[key]; ok {
		return status
	}
	d.writes[key] = append(d.writes[key], value)
	d.scripts[key] = []any{value}
	d.reads[key] = 0
	return http.StatusOK
}

func (d *Device) execute(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if status, ok := d.rejectPost[key]; ok {
		return status
	}
	return http.StatusOK
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	escaped := r.URL.EscapedPath()
	if escaped == lwm2m.ClientsPath {
		s.handleList(w, r)
		return
	}

	// Endpoints may contain "/", so split before unescaping.
	rel := strings.TrimPrefix(escaped, lwm2m.ClientsPath+"/")
	path, err := lwm2m.ParsePath(rel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := Request{Method: r.Method, Path: path}
	if r.Method == http.MethodPut {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			ID    int `json:"id"`
			Value any `json:"value"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, "malformed write", http.StatusBadRequest)
			return
		}
		req.Value = payload.Value
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	device := s.devices[path.Endpoint]
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	if device == nil {
		http.NotFound(w, r)
		return
	}

	key := path.ResourceKey()
	switch r.Method {
	case http.MethodGet:
		v, ok := device.read(key)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "CONTENT",
			"content": map[string]any{"id": path.ResourceID, "value": v},
		})
	case http.MethodPut:
		w.WriteHeader(device.write(key, req.Value))
	case http.MethodPost:
		w.WriteHeader(device.execute(key))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.listStatus
	list := make([]map[string]any, 0, len(s.order))
	for _, ep := range s.order {
		list = append(list, map[string]any{"endpoint": ep, "lifetime": 300})
	}
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}
