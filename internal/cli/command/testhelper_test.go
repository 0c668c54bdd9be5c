package command

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/vatlidak/proctree-go/internal/cli/config"
	"github.com/vatlidak/proctree-go/internal/cli/connection"
)

// mockServer creates a test HTTP server with custom handlers.
type mockServer struct {
	*httptest.Server
	handlers map[string]http.HandlerFunc
}

// newMockServer creates a new mock server.
func newMockServer() *mockServer {
	m := &mockServer{
		handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Find handler by path prefix match
		for pattern, handler := range m.handlers {
			if strings.HasPrefix(r.URL.Path, pattern) {
				handler(w, r)
				return
			}
		}
		http.NotFound(w, r)
	}))
	return m
}

// handle registers a handler for a path pattern.
func (m *mockServer) handle(pattern string, handler http.HandlerFunc) {
	m.handlers[pattern] = handler
}

// jsonResponse writes a success envelope with the given payload.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":    "OK",
		"message": "Success",
		"data":    data,
	})
}

// errorResponse writes an error envelope.
func errorResponse(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
	})
}

// testContext creates a CLI context for testing with the mock server.
func testContext(server *mockServer, args ...string) *cli.Context {
	cfg := cliconfig.Default()
	app := &cli.App{
		Name:  "test",
		Flags: globalFlags(cfg),
		Metadata: map[string]any{
			"connMgr": connection.NewManager(),
		},
	}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		f.Apply(set)
	}

	fullArgs := []string{"--server", server.URL}
	fullArgs = append(fullArgs, args...)
	set.Parse(fullArgs)

	return cli.NewContext(app, set, nil)
}

// makeTestContext creates a CLI context with specific flags for testing actions.
// extraFlags maps non-global flag names to their values.
func makeTestContext(server *mockServer, extraFlags map[string]any, args []string) *cli.Context {
	cfg := cliconfig.Default()
	app := &cli.App{
		Name:  "test",
		Flags: globalFlags(cfg),
		Metadata: map[string]any{
			"connMgr": connection.NewManager(),
		},
	}

	allFlags := []cli.Flag{}
	allFlags = append(allFlags, globalFlags(cfg)...)

	existingFlags := make(map[string]bool)
	for _, f := range allFlags {
		for _, name := range f.Names() {
			existingFlags[name] = true
		}
	}

	for name, val := range extraFlags {
		if existingFlags[name] {
			continue
		}
		switch v := val.(type) {
		case string:
			allFlags = append(allFlags, &cli.StringFlag{Name: name, Value: v})
		case int:
			allFlags = append(allFlags, &cli.IntFlag{Name: name, Value: v})
		case bool:
			allFlags = append(allFlags, &cli.BoolFlag{Name: name, Value: v})
		case time.Duration:
			allFlags = append(allFlags, &cli.DurationFlag{Name: name, Value: v})
		}
		existingFlags[name] = true
	}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range allFlags {
		f.Apply(set)
	}

	cliArgs := []string{"--server", server.URL}
	for name, val := range extraFlags {
		switch v := val.(type) {
		case string:
			if v != "" {
				cliArgs = append(cliArgs, "--"+name, v)
			}
		case int:
			if v != 0 {
				cliArgs = append(cliArgs, "--"+name, fmt.Sprintf("%d", v))
			}
		case bool:
			if v {
				cliArgs = append(cliArgs, "--"+name)
			}
		case time.Duration:
			if v != 0 {
				cliArgs = append(cliArgs, "--"+name, v.String())
			}
		}
	}
	cliArgs = append(cliArgs, args...)

	set.Parse(cliArgs)

	return cli.NewContext(app, set, nil)
}

// Sample payloads used across the command tests.

func sampleTaskRecords() []map[string]any {
	return []map[string]any{
		{"id": 1, "parent_id": 0, "eldest_child_id": 3, "next_sibling_id": 0, "label": "init", "owner_id": 0, "state": "runnable"},
		{"id": 3, "parent_id": 1, "eldest_child_id": 0, "next_sibling_id": 2, "label": "worker-b", "owner_id": 1000, "state": "runnable"},
		{"id": 2, "parent_id": 1, "eldest_child_id": 0, "next_sibling_id": 0, "label": "worker-a", "owner_id": 1000, "state": "sleeping"},
	}
}

func sampleSnapshot() map[string]any {
	return map[string]any{
		"id":            "ptsn-01kct9ns8he7a9m022x0tgbhds",
		"taken_at":      time.Now().UTC().Format(time.RFC3339Nano),
		"records":       sampleTaskRecords(),
		"total_visited": 3,
		"truncated":     false,
	}
}
