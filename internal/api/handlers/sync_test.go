package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/jobs"
)

type fakePublisher struct {
	published []*jobs.Task
}

func (f *fakePublisher) Publish(ctx context.Context, task *jobs.Task) error {
	task.TaskID = "task-" + string(rune('a'+len(f.published)))
	f.published = append(f.published, task)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestSyncAccountsEnqueuesPerActiveAccount(t *testing.T) {
	accounts := &fakeAccountRepo{byToken: map[string]*domain.Account{
		"tok-1": {ID: 1, Token: "tok-1", Active: true},
		"tok-2": {ID: 2, Token: "tok-2", Active: true},
		"tok-3": {ID: 3, Token: "tok-3", Active: false},
	}}
	publisher := &fakePublisher{}
	h := NewSyncHandler(accounts, publisher, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/sync/accounts", nil)
	rec := httptest.NewRecorder()
	h.SyncAccounts(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}
	if len(publisher.published) != 2 {
		t.Fatalf("published %d tasks, want 2", len(publisher.published))
	}
	for _, task := range publisher.published {
		if task.Type != jobs.TaskTypeSyncAccount {
			t.Errorf("task type = %q, want sync_account", task.Type)
		}
	}

	var resp struct {
		TaskIDs []string `json:"task_ids"`
		Count   int      `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Count != 2 || len(resp.TaskIDs) != 2 {
		t.Errorf("response = %+v, want 2 task ids", resp)
	}
}

func TestSyncAccountsRejectsGet(t *testing.T) {
	h := NewSyncHandler(&fakeAccountRepo{}, &fakePublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/sync/accounts", nil)
	rec := httptest.NewRecorder()
	h.SyncAccounts(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
