package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/core/service"
	"github.com/vatlidak/proctree-go/internal/registry"
	"github.com/vatlidak/proctree-go/internal/storage"
	"github.com/vatlidak/proctree-go/internal/telemetry/metric"
)

func newTestHandler(t *testing.T) (*Handler, *registry.Registry) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.Open(storage.Config{InMemory: true, GCInterval: time.Hour}, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := registry.New()
	h := New(Config{
		SnapshotService: service.NewSnapshotService(reg),
		AuthService:     service.NewAuthService(storage.NewKeyStore(store)),
		Registry:        reg,
		Archive:         storage.NewArchive(store, 0),
		Metrics:         metric.New(),
		Logger:          logger,
		DefaultCapacity: 64,
	})
	return h, reg
}

func doRequest(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Request-ID", "req-test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Code string          `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v (body %s)", err, rec.Body.String())
	}
	var data T
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v (body %s)", err, rec.Body.String())
	}
	return data
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	if rec.Code != status {
		t.Errorf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if got := rec.Header().Get("X-Error-Code"); got != code {
		t.Errorf("X-Error-Code = %q, want %q", got, code)
	}
}

func TestHandler_Health(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-test" {
		t.Errorf("X-Request-ID = %q, want req-test", got)
	}

	rec = doRequest(t, h, http.MethodGet, "/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d, want 200", rec.Code)
	}
}

func TestHandler_Snapshot(t *testing.T) {
	h, reg := newTestHandler(t)

	a, err := reg.Spawn(domain.RootTaskID, "init", 0, domain.StateRunnable)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if _, err := reg.Spawn(a, "worker", 1000, domain.StateSleeping); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/v1/snapshot?capacity=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	snap := decodeData[SnapshotResponse](t, rec)
	if snap.TotalVisited != 3 {
		t.Errorf("TotalVisited = %d, want 3", snap.TotalVisited)
	}
	if len(snap.Records) != 3 {
		t.Errorf("len(Records) = %d, want 3", len(snap.Records))
	}
	if snap.Truncated {
		t.Error("Truncated = true, want false")
	}
	if snap.Records[0].ID != domain.RootTaskID {
		t.Errorf("first record ID = %v, want root", snap.Records[0].ID)
	}
	if !domain.ValidateSnapshotID(snap.ID) {
		t.Errorf("malformed snapshot ID %q", snap.ID)
	}
}

func TestHandler_SnapshotTruncation(t *testing.T) {
	h, reg := newTestHandler(t)

	for i := 0; i < 5; i++ {
		if _, err := reg.Spawn(domain.RootTaskID, fmt.Sprintf("task-%d", i), 0, domain.StateRunnable); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}

	rec := doRequest(t, h, http.MethodGet, "/v1/snapshot?capacity=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	snap := decodeData[SnapshotResponse](t, rec)
	if len(snap.Records) != 2 {
		t.Errorf("len(Records) = %d, want 2", len(snap.Records))
	}
	if snap.TotalVisited != 6 {
		t.Errorf("TotalVisited = %d, want 6", snap.TotalVisited)
	}
	if !snap.Truncated {
		t.Error("Truncated = false, want true")
	}
}

func TestHandler_SnapshotInvalidCapacity(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/v1/snapshot?capacity=0", nil)
	assertErrorCode(t, rec, http.StatusBadRequest, "PT-SNAP-4001")

	rec = doRequest(t, h, http.MethodGet, "/v1/snapshot?capacity=abc", nil)
	assertErrorCode(t, rec, http.StatusBadRequest, "PT-SNAP-4001")
}

func TestHandler_SnapshotDefaultCapacity(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/v1/snapshot", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	snap := decodeData[SnapshotResponse](t, rec)
	if snap.TotalVisited != 1 {
		t.Errorf("TotalVisited = %d, want 1", snap.TotalVisited)
	}
}

func TestHandler_SnapshotArchive(t *testing.T) {
	h, reg := newTestHandler(t)

	if _, err := reg.Spawn(domain.RootTaskID, "init", 0, domain.StateRunnable); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/v1/snapshot?capacity=10&archive=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	snap := decodeData[SnapshotResponse](t, rec)
	if !snap.Archived {
		t.Error("Archived = false, want true")
	}

	// The archived copy must round-trip through the archive endpoint.
	rec = doRequest(t, h, http.MethodGet, "/v1/archive/snapshots/"+snap.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive get status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	stored := decodeData[SnapshotResponse](t, rec)
	if stored.ID != snap.ID {
		t.Errorf("stored ID = %q, want %q", stored.ID, snap.ID)
	}
	if stored.TotalVisited != snap.TotalVisited {
		t.Errorf("stored TotalVisited = %d, want %d", stored.TotalVisited, snap.TotalVisited)
	}
}

func TestHandler_GetTask(t *testing.T) {
	h, reg := newTestHandler(t)

	id, err := reg.Spawn(domain.RootTaskID, "init", 1000, domain.StateSleeping)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/v1/tasks/"+id.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	task := decodeData[domain.TaskRecord](t, rec)
	if task.ID != id {
		t.Errorf("ID = %v, want %v", task.ID, id)
	}
	if task.Label != "init" {
		t.Errorf("Label = %q, want init", task.Label)
	}
	if task.OwnerID != 1000 {
		t.Errorf("OwnerID = %d, want 1000", task.OwnerID)
	}
	if task.State != domain.StateSleeping {
		t.Errorf("State = %q, want sleeping", task.State)
	}
}

func TestHandler_GetTaskErrors(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/v1/tasks/999", nil)
	assertErrorCode(t, rec, http.StatusNotFound, "PT-TASK-4040")

	rec = doRequest(t, h, http.MethodGet, "/v1/tasks/notanumber", nil)
	assertErrorCode(t, rec, http.StatusBadRequest, "PT-ARG-1001")
}

func TestHandler_SpawnTask(t *testing.T) {
	h, reg := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/v1/tasks", SpawnTaskRequest{
		Label:   "daemon",
		OwnerID: 500,
		State:   "sleeping",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	resp := decodeData[SpawnTaskResponse](t, rec)
	if resp.ParentID != uint64(domain.RootTaskID) {
		t.Errorf("ParentID = %d, want root", resp.ParentID)
	}

	record, err := reg.Lookup(domain.TaskID(resp.ID))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if record.Label != "daemon" {
		t.Errorf("Label = %q, want daemon", record.Label)
	}
	if record.State != domain.StateSleeping {
		t.Errorf("State = %q, want sleeping", record.State)
	}
}

func TestHandler_SpawnTaskValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/v1/tasks", SpawnTaskRequest{Label: ""})
	assertErrorCode(t, rec, http.StatusBadRequest, "PT-ARG-1002")

	rec = doRequest(t, h, http.MethodPost, "/v1/tasks", SpawnTaskRequest{
		Label: "x", State: "flying",
	})
	assertErrorCode(t, rec, http.StatusBadRequest, "PT-ARG-1001")

	// Unknown parent.
	rec = doRequest(t, h, http.MethodPost, "/v1/tasks", SpawnTaskRequest{
		Label: "x", ParentID: 999,
	})
	assertErrorCode(t, rec, http.StatusNotFound, "PT-TASK-4040")

	// Labels longer than the display width are clamped, not rejected.
	rec = doRequest(t, h, http.MethodPost, "/v1/tasks", SpawnTaskRequest{
		Label: "a-very-long-process-name-indeed",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestHandler_ExitTask(t *testing.T) {
	h, reg := newTestHandler(t)

	parent, err := reg.Spawn(domain.RootTaskID, "parent", 0, domain.StateRunnable)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	child, err := reg.Spawn(parent, "child", 0, domain.StateRunnable)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	rec := doRequest(t, h, http.MethodPost, "/v1/tasks/"+parent.String()+"/exit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	// Orphans are adopted by the root sentinel.
	record, err := reg.Lookup(child)
	if err != nil {
		t.Fatalf("Lookup orphan: %v", err)
	}
	if record.ParentID != domain.RootTaskID {
		t.Errorf("orphan ParentID = %v, want root", record.ParentID)
	}
}

func TestHandler_ExitTaskErrors(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/v1/tasks/999/exit", nil)
	assertErrorCode(t, rec, http.StatusNotFound, "PT-TASK-4040")

	// The root sentinel never exits.
	rec = doRequest(t, h, http.MethodPost, "/v1/tasks/1/exit", nil)
	assertErrorCode(t, rec, http.StatusBadRequest, "PT-TASK-4003")
}

func TestHandler_SetTaskState(t *testing.T) {
	h, reg := newTestHandler(t)

	id, err := reg.Spawn(domain.RootTaskID, "init", 0, domain.StateRunnable)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	rec := doRequest(t, h, http.MethodPost, "/v1/tasks/"+id.String()+"/state",
		SetTaskStateRequest{State: "zombie"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	record, err := reg.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if record.State != domain.StateZombie {
		t.Errorf("State = %q, want zombie", record.State)
	}

	rec = doRequest(t, h, http.MethodPost, "/v1/tasks/"+id.String()+"/state",
		SetTaskStateRequest{State: "bogus"})
	assertErrorCode(t, rec, http.StatusBadRequest, "PT-ARG-1001")
}

func TestHandler_ArchiveListAndPrune(t *testing.T) {
	h, reg := newTestHandler(t)

	if _, err := reg.Spawn(domain.RootTaskID, "init", 0, domain.StateRunnable); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	var ids []string
	for i := 0; i < 4; i++ {
		rec := doRequest(t, h, http.MethodGet, "/v1/snapshot?capacity=10&archive=true", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("snapshot status = %d (body %s)", rec.Code, rec.Body.String())
		}
		ids = append(ids, decodeData[SnapshotResponse](t, rec).ID)
		time.Sleep(2 * time.Millisecond)
	}

	rec := doRequest(t, h, http.MethodGet, "/v1/archive/snapshots", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d (body %s)", rec.Code, rec.Body.String())
	}
	list := decodeData[ListArchiveResponse](t, rec)
	if list.Count != 4 {
		t.Fatalf("Count = %d, want 4", list.Count)
	}
	// Newest first.
	if list.Snapshots[0].ID != ids[3] {
		t.Errorf("first entry = %q, want newest %q", list.Snapshots[0].ID, ids[3])
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/archive/snapshots?limit=2", nil)
	if got := decodeData[ListArchiveResponse](t, rec).Count; got != 2 {
		t.Errorf("limited Count = %d, want 2", got)
	}

	rec = doRequest(t, h, http.MethodPost, "/v1/archive/prune", PruneArchiveRequest{Keep: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("prune status = %d (body %s)", rec.Code, rec.Body.String())
	}
	pruned := decodeData[PruneArchiveResponse](t, rec)
	if pruned.Removed != 3 || pruned.Kept != 1 {
		t.Errorf("Removed = %d Kept = %d, want 3 and 1", pruned.Removed, pruned.Kept)
	}

	// The survivor is the newest snapshot.
	rec = doRequest(t, h, http.MethodGet, "/v1/archive/snapshots/"+ids[3], nil)
	if rec.Code != http.StatusOK {
		t.Errorf("newest snapshot gone after prune (status %d)", rec.Code)
	}
	rec = doRequest(t, h, http.MethodGet, "/v1/archive/snapshots/"+ids[0], nil)
	assertErrorCode(t, rec, http.StatusNotFound, "PT-SNAP-4040")
}

func TestHandler_ArchiveDelete(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/v1/snapshot?capacity=10&archive=true", nil)
	id := decodeData[SnapshotResponse](t, rec).ID

	rec = doRequest(t, h, http.MethodDelete, "/v1/archive/snapshots/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodDelete, "/v1/archive/snapshots/"+id, nil)
	assertErrorCode(t, rec, http.StatusNotFound, "PT-SNAP-4040")
}

func TestHandler_StatusSummary(t *testing.T) {
	h, reg := newTestHandler(t)

	if _, err := reg.Spawn(domain.RootTaskID, "init", 0, domain.StateRunnable); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	rec := doRequest(t, h, http.MethodGet, "/admin/v1/status/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}

	summary := decodeData[StatusSummaryResponse](t, rec)
	if summary.LiveTasks != 2 {
		t.Errorf("LiveTasks = %d, want 2", summary.LiveTasks)
	}
	if summary.Goroutines < 1 {
		t.Errorf("Goroutines = %d, want >= 1", summary.Goroutines)
	}
}

func TestHandler_APIKeyLifecycle(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/admin/v1/keys", CreateAPIKeyRequest{
		Name: "ops", Role: "observer",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body %s)", rec.Code, rec.Body.String())
	}
	created := decodeData[CreateAPIKeyResponse](t, rec)
	if !domain.IsValidAPIKeyID(created.KeyID) {
		t.Errorf("malformed key ID %q", created.KeyID)
	}
	if created.Secret == "" {
		t.Error("empty plaintext secret")
	}
	if created.RateLimit != domain.DefaultKeyRateLimit {
		t.Errorf("RateLimit = %d, want default %d", created.RateLimit, domain.DefaultKeyRateLimit)
	}

	rec = doRequest(t, h, http.MethodGet, "/admin/v1/keys", nil)
	keys := decodeData[ListAPIKeysResponse](t, rec)
	if len(keys.Keys) != 1 {
		t.Fatalf("len(Keys) = %d, want 1", len(keys.Keys))
	}
	if !keys.Keys[0].Enabled {
		t.Error("new key not enabled")
	}

	rec = doRequest(t, h, http.MethodPost, "/admin/v1/keys/"+created.KeyID+"/status",
		UpdateAPIKeyStatusRequest{Enabled: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("status update = %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodDelete, "/admin/v1/keys/"+created.KeyID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodDelete, "/admin/v1/keys/"+created.KeyID, nil)
	assertErrorCode(t, rec, http.StatusNotFound, "PT-AUTH-4040")
}

func TestHandler_APIKeyValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/admin/v1/keys", CreateAPIKeyRequest{
		Name: "", Role: "observer",
	})
	assertErrorCode(t, rec, http.StatusBadRequest, "PT-ARG-1002")

	rec = doRequest(t, h, http.MethodPost, "/admin/v1/keys", CreateAPIKeyRequest{
		Name: "ops", Role: "superuser",
	})
	assertErrorCode(t, rec, http.StatusBadRequest, "PT-ARG-1001")
}

func TestHandler_UnknownFieldRejected(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks",
		bytes.NewReader([]byte(`{"label":"x","bogus":true}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assertErrorCode(t, rec, http.StatusBadRequest, "PT-SYS-4000")
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{"PT-TASK-4040", http.StatusNotFound},
		{"PT-SNAP-4040", http.StatusNotFound},
		{"PT-SNAP-4001", http.StatusBadRequest},
		{"PT-TASK-4003", http.StatusBadRequest},
		{"PT-AUTH-4010", http.StatusUnauthorized},
		{"PT-AUTH-4011", http.StatusUnauthorized},
		{"PT-AUTH-4012", http.StatusUnauthorized},
		{"PT-AUTH-4030", http.StatusForbidden},
		{"PT-AUTH-4090", http.StatusConflict},
		{"PT-AUTH-4290", http.StatusTooManyRequests},
		{"PT-ARG-1001", http.StatusBadRequest},
		{"PT-ARG-1002", http.StatusBadRequest},
		{"PT-SYS-4000", http.StatusBadRequest},
		{"PT-SYS-5000", http.StatusInternalServerError},
		{"PT-SNAP-5070", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := errorCodeToHTTPStatus(tc.code); got != tc.want {
			t.Errorf("errorCodeToHTTPStatus(%q) = %d, want %d", tc.code, got, tc.want)
		}
	}
}
