package monobank

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 0, zerolog.Nop()), srv
}

func TestClientInfoDecodesResponse(t *testing.T) {
	var gotToken, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Token")
		gotPath = r.URL.Path
		w.Write([]byte(`{
			"clientId": "client-1",
			"name": "Ivan",
			"webHookUrl": "https://example.com/webhook/",
			"accounts": [{"id":"card-1","currencyCode":980,"balance":100000,"type":"black","maskedPan":["537541******1234"]}],
			"jars": [{"id":"jar-1","title":"Vacation","currencyCode":980,"balance":20000,"goal":1000000}]
		}`))
	})

	info, err := client.ClientInfo(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotToken != "tok" {
		t.Errorf("X-Token = %q, want tok", gotToken)
	}
	if gotPath != "/personal/client-info" {
		t.Errorf("path = %q", gotPath)
	}
	if info.ClientID != "client-1" || len(info.Accounts) != 1 || len(info.Jars) != 1 {
		t.Errorf("decoded info = %+v", info)
	}
	if info.Accounts[0].CurrencyCode != 980 {
		t.Errorf("card currency = %d, want 980", info.Accounts[0].CurrencyCode)
	}
	if info.Jars[0].Goal != 1000000 {
		t.Errorf("jar goal = %d, want 1000000", info.Jars[0].Goal)
	}
}

func TestStatementBuildsWindowURL(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[{"id":"txn-1","time":1700000000,"amount":-12345,"currencyCode":980,"mcc":5411}]`))
	})

	items, err := client.Statement(context.Background(), "tok", "card-1", 100, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/personal/statement/card-1/100/200" {
		t.Errorf("path = %q", gotPath)
	}
	if len(items) != 1 || items[0].ID != "txn-1" || items[0].MCC != 5411 {
		t.Errorf("decoded items = %+v", items)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, "", true},
		{"server error", http.StatusInternalServerError, "", true},
		{"bad gateway", http.StatusBadGateway, "", true},
		{"forbidden", http.StatusForbidden, `{"errorDescription":"Unknown 'X-Token'"}`, false},
		{"not found", http.StatusNotFound, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.ClientInfo(context.Background(), "tok")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Is(err, domain.ErrTransientUpstream); got != tt.transient {
				t.Errorf("transient = %v, want %v (err: %v)", got, tt.transient, err)
			}
			if !tt.transient && !errors.Is(err, domain.ErrUpstreamData) {
				t.Errorf("expected ErrUpstreamData, got %v", err)
			}
		})
	}
}

func TestErrorBodyWithOKStatus(t *testing.T) {
	// The upstream sometimes answers 200 with an error envelope.
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errorDescription":"too many requests"}`))
	})

	_, err := client.ClientInfo(context.Background(), "tok")
	if !errors.Is(err, domain.ErrUpstreamData) {
		t.Errorf("expected ErrUpstreamData, got %v", err)
	}
}

func TestTransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	client := NewClient(srv.URL, 0, zerolog.Nop())

	_, err := client.ClientInfo(context.Background(), "tok")
	if !errors.Is(err, domain.ErrTransientUpstream) {
		t.Errorf("expected ErrTransientUpstream, got %v", err)
	}
}

func TestRegisterWebhook(t *testing.T) {
	var gotBody map[string]string
	var gotMethod, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	})

	err := client.RegisterWebhook(context.Background(), "tok", "https://example.com/webhook/?token=tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/personal/webhook" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotBody["webHookUrl"] != "https://example.com/webhook/?token=tok" {
		t.Errorf("webHookUrl = %q", gotBody["webHookUrl"])
	}
}
