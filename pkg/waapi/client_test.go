package waapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(environments.WaapiConfig{
		BaseURL: srv.URL + "/api/v1",
		RootURL: srv.URL,
		Timeout: 2 * time.Second,
	})

	return client, &calls
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+90 (555) 123-45-67", "905551234567", false},
		{"5551234567", "5551234567", false},
		{"abc", "", true},
		{"+123456789", "", true},
	}

	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizePhone(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePhone(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizePhone(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestSendMessage_InvalidPhoneMakesNoHTTPCall(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	res := client.SendMessage(context.Background(), SendRequest{
		Phone: "abc", Body: "hi", Token: "tok", InstanceID: "I1",
	})

	if res.Delivered {
		t.Fatalf("expected Delivered=false for invalid phone")
	}
	if res.Error == "" {
		t.Fatalf("expected error reason")
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Fatalf("expected no HTTP call, got %d", atomic.LoadInt32(calls))
	}
}

func TestSendMessage_MediaWithoutURLMakesNoHTTPCall(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	res := client.SendMessage(context.Background(), SendRequest{
		Phone: "+905551234567", Body: "caption", Token: "tok", InstanceID: "I1", Kind: domain.MessageMedia,
	})

	if res.Delivered {
		t.Fatalf("expected Delivered=false for media without URL")
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Fatalf("expected no HTTP call, got %d", atomic.LoadInt32(calls))
	}
}

func TestSendMessage_TextSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"messageId":"wamid-1"}}`))
	})

	res := client.SendMessage(context.Background(), SendRequest{
		Phone: "+90 555 123 45 67", Body: "Hello", Token: "secret", InstanceID: "I1",
	})

	if !res.Delivered {
		t.Fatalf("expected Delivered=true, got error %q", res.Error)
	}
	if res.MessageID != "wamid-1" {
		t.Errorf("expected MessageID=wamid-1, got %q", res.MessageID)
	}
	if gotPath != "/api/v1/instances/I1/client/action/send-message" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}
	if gotBody["chatId"] != "905551234567@c.us" {
		t.Errorf("unexpected chatId %v", gotBody["chatId"])
	}
	if gotBody["message"] != "Hello" {
		t.Errorf("unexpected message %v", gotBody["message"])
	}
}

func TestSendMessage_MediaUsesSendMediaEndpoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"id":42}`))
	})

	res := client.SendMessage(context.Background(), SendRequest{
		Phone: "5551234567", Body: "look", Token: "tok", InstanceID: "I1",
		Kind: domain.MessageMedia, MediaURL: "https://cdn.example.com/a.png",
	})

	if !res.Delivered {
		t.Fatalf("expected Delivered=true, got error %q", res.Error)
	}
	if res.MessageID != "42" {
		t.Errorf("expected MessageID=42, got %q", res.MessageID)
	}
	if gotPath != "/api/v1/instances/I1/client/action/send-media" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody["mediaUrl"] != "https://cdn.example.com/a.png" || gotBody["caption"] != "look" {
		t.Errorf("unexpected media body %v", gotBody)
	}
}

func TestSendMessage_FailureTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"non-2xx with message", http.StatusBadRequest, `{"message":"chat not found"}`},
		{"non-2xx without message", http.StatusInternalServerError, `{"foo":"bar"}`},
		{"empty body", http.StatusOK, ``},
		{"non-JSON body", http.StatusOK, `<html>oops</html>`},
		{"vendor status error", http.StatusOK, `{"status":"error","error":"instance not ready"}`},
		{"vendor success false", http.StatusOK, `{"success":false,"message":"blocked"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			res := client.SendMessage(context.Background(), SendRequest{
				Phone: "5551234567", Body: "x", Token: "tok", InstanceID: "I1",
			})

			if res.Delivered {
				t.Fatalf("expected Delivered=false")
			}
			if res.Error == "" {
				t.Fatalf("expected error reason")
			}
		})
	}
}

func TestSendMessage_NetworkErrorIsValue(t *testing.T) {
	client := NewClient(environments.WaapiConfig{
		BaseURL: "http://127.0.0.1:1/api/v1",
		RootURL: "http://127.0.0.1:1",
		Timeout: 500 * time.Millisecond,
	})

	res := client.SendMessage(context.Background(), SendRequest{
		Phone: "5551234567", Body: "x", Token: "tok", InstanceID: "I1",
	})

	if res.Delivered || res.Error == "" {
		t.Fatalf("expected a failed result with reason, got %+v", res)
	}
}

func TestResolveInstanceID_ResponseShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"data array", `{"data":[{"id":"I1"},{"id":"I2"}]}`, "I1"},
		{"bare array", `[{"id":123}]`, "123"},
		{"instances array", `{"instances":[{"id":"abc"}]}`, "abc"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/instances" {
					t.Errorf("unexpected path %q", r.URL.Path)
				}
				_, _ = w.Write([]byte(tc.body))
			})

			got, err := client.ResolveInstanceID(context.Background(), "tok")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestResolveInstanceID_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"empty list", http.StatusOK, `{"data":[]}`},
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad token"}`},
		{"garbage", http.StatusOK, `not json`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			got, err := client.ResolveInstanceID(context.Background(), "tok")
			if err == nil {
				t.Fatalf("expected error, got instance %q", got)
			}
		})
	}
}

func TestVerifyCredential_OnlyUnauthorizedIsInvalid(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, true},
		{http.StatusNotFound, true},
		{http.StatusInternalServerError, AssumeValidOnUncertainVerification},
		{http.StatusUnauthorized, false},
	}

	for _, tc := range cases {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/instances/I1/client/action/get-connection-state" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			w.WriteHeader(tc.status)
		})

		if got := client.VerifyCredential(context.Background(), "tok", "I1"); got != tc.want {
			t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, got)
		}
	}
}

func TestVerifyCredential_NetworkErrorAssumesValid(t *testing.T) {
	client := NewClient(environments.WaapiConfig{
		BaseURL: "http://127.0.0.1:1/api/v1",
		Timeout: 500 * time.Millisecond,
	})

	if got := client.VerifyCredential(context.Background(), "tok", "I1"); got != AssumeValidOnUncertainVerification {
		t.Fatalf("expected policy default %v, got %v", AssumeValidOnUncertainVerification, got)
	}
}

func TestCheckServiceAvailability(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	})

	if av := client.CheckServiceAvailability(context.Background()); !av.Available {
		t.Fatalf("expected available, got %+v", av)
	}

	down := NewClient(environments.WaapiConfig{RootURL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})
	if av := down.CheckServiceAvailability(context.Background()); av.Available {
		t.Fatalf("expected unavailable on network error, got %+v", av)
	}
}

func TestTestConnection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/instances/good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	if err := client.TestConnection(context.Background(), "tok", "good"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if err := client.TestConnection(context.Background(), "tok", "missing"); err == nil {
		t.Fatalf("expected error for missing instance")
	}
}
