package gcs

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{
		httpClient:    srv.Client(),
		bucket:        "bucket",
		apiBase:       srv.URL,
		uploadBase:    srv.URL + "/upload",
		publicBaseURL: "https://cdn.example.com",
		tokens:        staticTokenSource("test-token"),
	}
}

func TestUploadSendsMediaRequest(t *testing.T) {
	var gotName, gotType, gotAuth string
	var gotBody []byte
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload/storage/v1/b/bucket/o" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotName = r.URL.Query().Get("name")
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(Object{Name: gotName, Bucket: "bucket", ContentType: gotType})
	})

	obj, err := client.Upload(context.Background(), "products/abc.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if gotName != "products/abc.png" || gotType != "image/png" || gotAuth != "Bearer test-token" {
		t.Fatalf("unexpected request name=%q type=%q auth=%q", gotName, gotType, gotAuth)
	}
	if string(gotBody) != "png-bytes" {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if obj.Name != "products/abc.png" {
		t.Fatalf("unexpected object %+v", obj)
	}
}

func TestUploadSurfacesStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	})
	if _, err := client.Upload(context.Background(), "x", []byte("x"), "image/png"); err == nil {
		t.Fatalf("expected upload error")
	}
}

func TestDelete(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		if calls == 1 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	if err := client.Delete(context.Background(), "categories/logo.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := client.Delete(context.Background(), "categories/logo.png"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestPublicURLEscapesSegments(t *testing.T) {
	client := &Client{bucket: "bucket", publicBaseURL: "https://cdn.example.com"}
	got := client.PublicURL("blogs/a b.png")
	if got != "https://cdn.example.com/bucket/blogs/a%20b.png" {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestServiceAccountTokenSourceSignsAssertion(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		assertion := r.PostForm.Get("assertion")
		claims := jwt.MapClaims{}
		if _, err := jwt.ParseWithClaims(assertion, claims, func(*jwt.Token) (any, error) {
			return &key.PublicKey, nil
		}); err != nil {
			t.Errorf("assertion did not verify: %v", err)
		}
		if claims["iss"] != "svc@example.com" {
			t.Errorf("unexpected iss %v", claims["iss"])
		}
		_, _ = w.Write([]byte(`{"access_token":"minted","expires_in":3600}`))
	}))
	defer srv.Close()

	raw, _ := json.Marshal(serviceAccount{ClientEmail: "svc@example.com", PrivateKey: string(pemKey), TokenURI: srv.URL})
	ts, err := newServiceAccountTokenSource(srv.Client(), raw)
	if err != nil {
		t.Fatalf("token source: %v", err)
	}
	token, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token != "minted" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestServiceAccountTokenSourceRejectsBadCreds(t *testing.T) {
	if _, err := newServiceAccountTokenSource(http.DefaultClient, []byte(`{"client_email":""}`)); err == nil {
		t.Fatalf("expected error for empty credentials")
	}
}
