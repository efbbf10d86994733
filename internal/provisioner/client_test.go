package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, "test-key", 5*time.Second)
}

func TestCreateAccount(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/accounts" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Error("missing API key header")
		}

		var req CreateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.RAMMB != 1024 || req.CPU != 100 {
			t.Errorf("request allocation = %d/%d", req.RAMMB, req.CPU)
		}

		json.NewEncoder(w).Encode(CreateAccountResponse{ExternalID: "ext-99", Status: "active"})
	})

	resp, err := client.CreateAccount(context.Background(), &CreateAccountRequest{
		Username: "hv1", Domain: "example.com", RAMMB: 1024, CPU: 100,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if resp.ExternalID != "ext-99" {
		t.Errorf("ExternalID = %q, want ext-99", resp.ExternalID)
	}
}

func TestSetLimits(t *testing.T) {
	var gotPath string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	if err := client.SetLimits(context.Background(), "ext-1", 1280, 100); err != nil {
		t.Fatalf("SetLimits: %v", err)
	}
	if gotPath != "/api/accounts/ext-1/limits" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestSetLimitsServerError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "boom"})
	})

	if err := client.SetLimits(context.Background(), "ext-1", 1280, 100); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestGetUsage(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/accounts/ext-1/usage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"available": true,
			"usage":     Usage{RAMUsageMB: 900, CPUUsagePercent: 42},
		})
	})

	usage, err := client.GetUsage(context.Background(), "ext-1")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if usage.RAMUsageMB != 900 || usage.CPUUsagePercent != 42 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestGetUsageUnavailable(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"available": false})
	})

	_, err := client.GetUsage(context.Background(), "ext-1")
	if !errors.Is(err, ErrUsageUnavailable) {
		t.Fatalf("err = %v, want ErrUsageUnavailable", err)
	}
}
