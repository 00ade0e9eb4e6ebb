package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"wyze-camera-server/config"
	"wyze-camera-server/models"
	"wyze-camera-server/store"
)

// newTestService wires a WyzeService against a fake vendor server, with a
// valid credential already in the store.
func newTestService(t *testing.T, handler http.Handler) (*WyzeService, *store.CredentialStore) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	credStore := store.NewCredentialStore(filepath.Join(t.TempDir(), "tokens.json"))
	if err := credStore.Save(models.Credential{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		PhoneID:      "phone-1",
	}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	cfg := config.WyzeConfig{
		AuthURL:      ts.URL,
		APIURL:       ts.URL,
		SignalingURL: ts.URL,
	}
	return NewWyzeService(cfg, credStore), credStore
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestExecuteRefreshRetry(t *testing.T) {
	var listCalls, refreshCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/home_page/get_object_list", func(w http.ResponseWriter, r *http.Request) {
		listCalls++
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["access_token"] == "at-2" {
			writeJSON(w, map[string]any{"code": "1", "data": map[string]any{"device_list": []any{}}})
			return
		}
		writeJSON(w, map[string]any{"code": "2001", "msg": "AccessTokenError"})
	})
	mux.HandleFunc("/user/refresh_token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		writeJSON(w, map[string]any{"code": "1", "data": map[string]any{
			"access_token":  "at-2",
			"refresh_token": "rt-2",
		}})
	})

	svc, credStore := newTestService(t, mux)

	if _, err := svc.GetObjectList(); err != nil {
		t.Fatalf("GetObjectList: %v", err)
	}
	if listCalls != 2 {
		t.Fatalf("expected 2 list calls (original + retry), got %d", listCalls)
	}
	if refreshCalls != 1 {
		t.Fatalf("expected exactly 1 refresh call, got %d", refreshCalls)
	}

	cred, ok := credStore.Current()
	if !ok || cred.AccessToken != "at-2" || cred.RefreshToken != "rt-2" {
		t.Fatalf("refreshed tokens not stored: %+v", cred)
	}
	if cred.PhoneID != "phone-1" {
		t.Fatalf("phone id must survive a refresh, got %q", cred.PhoneID)
	}
}

func TestExecuteRefreshRetryStillExpired(t *testing.T) {
	var listCalls, refreshCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/home_page/get_object_list", func(w http.ResponseWriter, r *http.Request) {
		listCalls++
		writeJSON(w, map[string]any{"code": "2001", "msg": "AccessTokenError"})
	})
	mux.HandleFunc("/user/refresh_token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		writeJSON(w, map[string]any{"code": "1", "data": map[string]any{
			"access_token":  "at-2",
			"refresh_token": "rt-2",
		}})
	})

	svc, _ := newTestService(t, mux)

	_, err := svc.GetObjectList()
	if err == nil {
		t.Fatal("expected error when retry also reports expiry")
	}
	if listCalls != 2 {
		t.Fatalf("expected exactly 2 list calls (no third attempt), got %d", listCalls)
	}
	if refreshCalls != 1 {
		t.Fatalf("expected exactly 1 refresh call, got %d", refreshCalls)
	}
}

func TestExecuteRefreshRejected(t *testing.T) {
	var listCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/home_page/get_object_list", func(w http.ResponseWriter, r *http.Request) {
		listCalls++
		writeJSON(w, map[string]any{"code": "2001", "msg": "AccessTokenError"})
	})
	mux.HandleFunc("/user/refresh_token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": "3000", "msg": "InvalidRefreshToken"})
	})

	svc, _ := newTestService(t, mux)

	_, err := svc.GetObjectList()
	if err == nil {
		t.Fatal("expected error when the refresh itself is rejected")
	}
	if listCalls != 1 {
		t.Fatalf("expected no retry after a failed refresh, got %d list calls", listCalls)
	}
}

func TestExecuteVendorError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/auto/run_action", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": "1001", "msg": "DeviceOffline"})
	})

	svc, _ := newTestService(t, mux)

	_, err := svc.RunAction("MAC1", "WYZEC1-JZ", "power_on")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != "1001" || apiErr.Message != "DeviceOffline" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestExecuteNotAuthenticated(t *testing.T) {
	svc, credStore := newTestService(t, http.NewServeMux())
	credStore.Clear()

	_, err := svc.GetObjectList()
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestSignedPayloadFields(t *testing.T) {
	var payload map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/device/set_property", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		writeJSON(w, map[string]any{"code": "1", "data": map[string]any{}})
	})

	svc, _ := newTestService(t, mux)

	if _, err := svc.SetProperty("MAC1", "WYZEC1-JZ", "p1", "2"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	pair := signingPairs["set_device_Info"]
	if payload["sc"] != pair.SC || payload["sv"] != pair.SV {
		t.Fatalf("wrong signing pair: sc=%v sv=%v", payload["sc"], payload["sv"])
	}
	if payload["access_token"] != "at-1" || payload["phone_id"] != "phone-1" {
		t.Fatalf("credential fields missing: %v", payload)
	}
	if payload["pid"] != "P1" {
		t.Fatalf("pid must be uppercased, got %v", payload["pid"])
	}
	if payload["pvalue"] != "2" || payload["device_mac"] != "MAC1" {
		t.Fatalf("property fields wrong: %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("payload missing timestamp")
	}
}

func TestGetSignalingNormalizes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/signaling/device/MAC1", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("authorization"); got != "Bearer at-1" {
			t.Errorf("missing bearer token, got %q", got)
		}
		writeJSON(w, map[string]any{"code": "1", "data": map[string]any{
			"results": map[string]any{
				"signalingUrl": "wss://signal.example.com/connect%3Fchannel%3Dabc",
				"servers": []map[string]any{
					{"url": "turn:54-201-33-198.t-xyz.kinesisvideo.us-west-2.amazonaws.com:443"},
				},
			},
		}})
	})

	svc, _ := newTestService(t, mux)

	bundle, err := svc.GetSignaling("MAC1")
	if err != nil {
		t.Fatalf("GetSignaling: %v", err)
	}
	if bundle.ClientID != "phone-1" {
		t.Fatalf("ClientID = %q, want phone-1", bundle.ClientID)
	}
	if bundle.SignalingURL != "wss://signal.example.com/connect?channel=abc" {
		t.Fatalf("signaling url not decoded: %q", bundle.SignalingURL)
	}
	if len(bundle.Servers) != 1 || bundle.Servers[0]["urls"] != "turn:54.201.33.198:443" {
		t.Fatalf("servers not normalized: %v", bundle.Servers)
	}
}

func TestParseAPIResponse(t *testing.T) {
	// Success with a data wrapper returns just the payload.
	data, err := parseAPIResponse([]byte(`{"code":"1","data":{"x":1}}`))
	if err != nil {
		t.Fatalf("success response: %v", err)
	}
	if string(data) != `{"x":1}` {
		t.Fatalf("data = %s", data)
	}

	// Numeric codes and errorCode are accepted too.
	if _, err := parseAPIResponse([]byte(`{"code":1,"data":{}}`)); err != nil {
		t.Fatalf("numeric code: %v", err)
	}
	if _, err := parseAPIResponse([]byte(`{"errorCode":0,"results":{}}`)); err != nil {
		t.Fatalf("errorCode form: %v", err)
	}

	// No data field: the whole body is the payload.
	data, err = parseAPIResponse([]byte(`{"code":"1","results":{"y":2}}`))
	if err != nil {
		t.Fatalf("bodyless data: %v", err)
	}
	var whole map[string]any
	if err := json.Unmarshal(data, &whole); err != nil || whole["results"] == nil {
		t.Fatalf("expected whole body back, got %s", data)
	}

	if _, err := parseAPIResponse([]byte(`{"code":"2001","msg":"expired"}`)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	_, err = parseAPIResponse([]byte(`{"code":"1001","msg":"DeviceOffline"}`))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "1001" {
		t.Fatalf("expected APIError 1001, got %v", err)
	}

	if _, err := parseAPIResponse([]byte(`not json`)); err == nil {
		t.Fatal("expected error for unparseable body")
	}
}
