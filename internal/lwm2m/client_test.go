package lwm2m

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAccepted(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, true},
		{201, true},
		{202, false},
		{204, false},
		{301, false},
		{400, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		if got := Accepted(tt.code); got != tt.want {
			t.Errorf("Accepted(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://leshan:8080/")

	if client.BaseURL != "http://leshan:8080" {
		t.Errorf("BaseURL = %s, want http://leshan:8080", client.BaseURL)
	}
	if client.RequestTimeout != DefaultTimeout {
		t.Errorf("RequestTimeout = %v, want %v", client.RequestTimeout, DefaultTimeout)
	}

	client.SetTimeout(2 * time.Second)
	if client.RequestTimeout != 2*time.Second {
		t.Errorf("RequestTimeout = %v, want 2s", client.RequestTimeout)
	}
}

func TestRead_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Request method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/clients/dev-1/5/0/3" {
			t.Errorf("Request path = %s, want /api/clients/dev-1/5/0/3", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"CONTENT","valid":true,"content":{"id":3,"value":2}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	status, err := client.ReadInt(context.Background(), DownloadStatus("dev-1"))
	if err != nil {
		t.Fatalf("ReadInt() error = %v", err)
	}
	if status != 2 {
		t.Errorf("ReadInt() = %d, want 2", status)
	}
}

func TestRead_ZeroIsNotUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":{"id":3,"value":0}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	status, err := client.ReadInt(context.Background(), DownloadStatus("dev-1"))
	if err != nil {
		t.Fatalf("ReadInt() error = %v, a legitimate 0 must not fail", err)
	}
	if status != 0 {
		t.Errorf("ReadInt() = %d, want 0", status)
	}
}

func TestRead_Unavailable(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		checkType func(error) bool
	}{
		{"not found", http.StatusNotFound, `{"message":"no registered client"}`, IsNotFound},
		{"server error", http.StatusInternalServerError, "", IsHTTPError},
		{"accepted but not 200/201", http.StatusAccepted, `{"content":{"value":1}}`, IsHTTPError},
		{"malformed json", http.StatusOK, `{"content":`, IsParseError},
		{"missing content", http.StatusOK, `{"status":"NOT_FOUND"}`, IsParseError},
		{"missing value", http.StatusOK, `{"content":{"id":3}}`, IsParseError},
		{"non-integer value", http.StatusOK, `{"content":{"id":3,"value":"idle"}}`, IsParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL)
			_, err := client.ReadInt(context.Background(), DownloadStatus("dev-1"))
			if err == nil {
				t.Fatal("ReadInt() should fail")
			}
			if !IsUnavailable(err) {
				t.Errorf("error should wrap ErrUnavailable, got %v", err)
			}
			if !tt.checkType(err) {
				t.Errorf("unexpected error classification: %v", err)
			}
		})
	}
}

func TestRead_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL)
	client.SetTimeout(50 * time.Millisecond)

	_, err := client.Read(context.Background(), DownloadStatus("dev-1"))
	if !IsUnavailable(err) {
		t.Fatalf("Read() error = %v, want unavailable", err)
	}
	if !IsTimeout(err) {
		t.Errorf("Read() error should be a timeout, got %v", err)
	}
}

func TestRead_CallerCancelDoesNotInterrupt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.Write([]byte(`{"content":{"id":5850,"value":true}}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL)
	v, err := client.Read(ctx, LightOnOff("lamp-1"))
	if err != nil {
		t.Fatalf("Read() error = %v, in-flight calls ignore caller cancellation", err)
	}
	if on, ok := v.Bool(); !ok || !on {
		t.Errorf("Read() = %v, want true", v.Raw())
	}
}

func TestWrite(t *testing.T) {
	var gotBody writeRequest
	var gotMethod, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("body is not JSON: %s", data)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"CHANGED"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Write(context.Background(), PackageURI("dev-1"), "coap://fw.example.com/zephyr.bin")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/api/clients/dev-1/5/0/1" {
		t.Errorf("path = %s, want /api/clients/dev-1/5/0/1", gotPath)
	}
	if gotBody.ID != 1 {
		t.Errorf("body id = %d, want 1", gotBody.ID)
	}
	if gotBody.Value != "coap://fw.example.com/zephyr.bin" {
		t.Errorf("body value = %v", gotBody.Value)
	}
}

func TestWrite_RejectedStatus(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusBadRequest, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		client := NewClient(server.URL)
		err := client.Write(context.Background(), LightOnOff("lamp-1"), false)
		server.Close()

		if err == nil {
			t.Errorf("Write() with status %d should fail", code)
			continue
		}
		if StatusCode(err) != code {
			t.Errorf("StatusCode() = %d, want %d", StatusCode(err), code)
		}
		if IsUnavailable(err) {
			t.Error("write failures are not read-unavailable")
		}
	}
}

func TestExecute(t *testing.T) {
	var gotMethod, gotPath string
	var gotLen int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotLen = r.ContentLength
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if err := client.Execute(context.Background(), UpdateTrigger("dev-1")); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/api/clients/dev-1/5/0/2" {
		t.Errorf("path = %s, want /api/clients/dev-1/5/0/2", gotPath)
	}
	if gotLen > 0 {
		t.Errorf("execute should send no body, got %d bytes", gotLen)
	}
}

func TestExecute_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url)
	err := client.Execute(context.Background(), Reboot("dev-1"))
	if err == nil {
		t.Fatal("Execute() against a closed server should fail")
	}
	if !IsNetworkError(err) {
		t.Errorf("error should be a network error, got %v", err)
	}
}

func TestListClients(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/clients" {
			t.Errorf("path = %s, want /api/clients", r.URL.Path)
		}
		w.Write([]byte(`[
			{"endpoint":"dev-1","address":"10.0.0.1:5683"},
			{"registrationId":"abc"},
			"garbage",
			{"endpoint":"dev-10"}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	regs, err := client.ListClients(context.Background())
	if err != nil {
		t.Fatalf("ListClients() error = %v", err)
	}

	var names []string
	for _, reg := range regs {
		names = append(names, reg.Endpoint)
	}
	if strings.Join(names, ",") != "dev-1,dev-10" {
		t.Errorf("ListClients() endpoints = %v, want [dev-1 dev-10]", names)
	}
}

func TestListClients_NotAnArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"endpoint":"dev-1"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.ListClients(context.Background()); !IsUnavailable(err) {
		t.Errorf("ListClients() error = %v, want unavailable", err)
	}
}

func TestEndpointEscaping(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		call     func(*Client, Path) error
		path     func(string) Path
		method   string
		want     string
	}{
		{
			name:     "read with query character",
			endpoint: "dev?1",
			call: func(c *Client, p Path) error {
				_, err := c.ReadInt(context.Background(), p)
				return err
			},
			path:   DownloadStatus,
			method: http.MethodGet,
			want:   "/api/clients/dev%3F1/5/0/3",
		},
		{
			name:     "write with fragment character",
			endpoint: "dev#1",
			call: func(c *Client, p Path) error {
				return c.Write(context.Background(), p, "coap://fw/zephyr.bin")
			},
			path:   PackageURI,
			method: http.MethodPut,
			want:   "/api/clients/dev%231/5/0/1",
		},
		{
			name:     "execute with slash",
			endpoint: "urn:dev/1",
			call: func(c *Client, p Path) error {
				return c.Execute(context.Background(), p)
			},
			path:   UpdateTrigger,
			method: http.MethodPost,
			want:   "/api/clients/urn:dev%2F1/5/0/2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMethod, gotPath, gotQuery string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotPath = r.URL.EscapedPath()
				gotQuery = r.URL.RawQuery
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"content":{"id":3,"value":1}}`))
			}))
			defer server.Close()

			client := NewClient(server.URL)
			if err := tt.call(client, tt.path(tt.endpoint)); err != nil {
				t.Fatalf("call error = %v", err)
			}
			if gotMethod != tt.method {
				t.Errorf("method = %s, want %s", gotMethod, tt.method)
			}
			if gotPath != tt.want {
				t.Errorf("escaped path = %s, want %s", gotPath, tt.want)
			}
			if gotQuery != "" {
				t.Errorf("query = %q, endpoint leaked out of the path", gotQuery)
			}
		})
	}
}
