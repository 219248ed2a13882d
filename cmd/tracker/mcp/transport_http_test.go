package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/phayes/freeport"
)

// Integration tests for the HTTP transport

func TestServeHTTPIntegration(t *testing.T) {
	mcpServer := &mcp.Server{}
	log := getTestLogger()

	port, err := freeport.GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		if err := serveHTTP(ctx, mcpServer, log, port); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	baseURL := fmt.Sprintf("http://localhost:%d", port)

	// Wait for the listener to come up
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became reachable: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Run("health_endpoint", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			t.Fatalf("Failed to call health endpoint: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Health status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var result map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode health response: %v", err)
		}
		if result["status"] != "healthy" {
			t.Errorf("Health status = %s, want healthy", result["status"])
		}
		if result["server"] != "analysis-tracker-mcp" {
			t.Errorf("Server name = %s, want analysis-tracker-mcp", result["server"])
		}
	})

	t.Run("mcp_options_preflight", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodOptions, baseURL+"/mcp", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Failed OPTIONS request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("OPTIONS status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
			t.Errorf("CORS origin = %s, want *", origin)
		}
	})

	t.Run("mcp_wrong_method", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/mcp")
		if err != nil {
			t.Fatalf("Failed GET request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("GET status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
		}
	})

	t.Run("mcp_invalid_json", func(t *testing.T) {
		resp, err := http.Post(baseURL+"/mcp", "application/json", bytes.NewBufferString("{not json"))
		if err != nil {
			t.Fatalf("Failed POST request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Invalid JSON status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("mcp_valid_post", func(t *testing.T) {
		reqBody := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
		resp, err := http.Post(baseURL+"/mcp", "application/json", bytes.NewBufferString(reqBody))
		if err != nil {
			t.Fatalf("Failed POST request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("POST status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var result map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if result["jsonrpc"] != "2.0" {
			t.Errorf("jsonrpc = %v, want 2.0", result["jsonrpc"])
		}
	})

	// Shut down and confirm the server exits cleanly
	cancel()
	select {
	case err := <-serverErr:
		t.Fatalf("server returned error: %v", err)
	case <-time.After(2 * time.Second):
	}
}

func TestServeHTTPPicksFreePort(t *testing.T) {
	// A non-positive port must not collide with anything; the server should
	// come up and shut down cleanly on its own.
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := serveHTTP(ctx, &mcp.Server{}, getTestLogger(), 0); err != nil {
		t.Fatalf("serveHTTP with port 0 returned error: %v", err)
	}
}
