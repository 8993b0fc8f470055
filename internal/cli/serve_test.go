package cli

import (
	"bytes"
	"image"
	_ "image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/liyue201/goqr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/qrraster/pkg/cache"
	"github.com/matzehuels/qrraster/pkg/config"
	"github.com/matzehuels/qrraster/pkg/observability"
	"github.com/matzehuels/qrraster/pkg/pipeline"
)

func newTestServer(reg *prometheus.Registry) http.Handler {
	logger := newLogger(io.Discard, LogInfo)
	runner := pipeline.NewRunner(cache.NewMemoryCache(8), cache.NewScopedKeyer(nil, "serve:"), logger)
	return newServer(runner, config.Default(), reg, logger)
}

func get(h http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeQR(t *testing.T) {
	h := newTestServer(prometheus.NewRegistry())
	content := "https://example.com/served"

	q := url.Values{}
	q.Set("content", content)
	q.Set("scale", "4")
	resp := get(h, "/qr?"+q.Encode(), nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if _, err := uuid.Parse(resp.Header().Get(requestIDHeader)); err != nil {
		t.Errorf("request id %q is not a UUID", resp.Header().Get(requestIDHeader))
	}
	if resp.Header().Get("X-Cache") != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", resp.Header().Get("X-Cache"))
	}

	img, _, err := image.Decode(bytes.NewReader(resp.Body.Bytes()))
	if err != nil {
		t.Fatalf("error decoding QR code image: %s", err)
	}
	codes, err := goqr.Recognize(img)
	if err != nil {
		t.Fatalf("unexpected QR reading error: %s", err)
	}
	if len(codes) != 1 {
		t.Fatalf("expected one QR code but found %d", len(codes))
	}
	if got := string(codes[0].Payload); got != content {
		t.Errorf("payload = %q, want %q", got, content)
	}

	again := get(h, "/qr?"+q.Encode(), nil)
	if again.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second request X-Cache = %q, want HIT", again.Header().Get("X-Cache"))
	}
	if !bytes.Equal(again.Body.Bytes(), resp.Body.Bytes()) {
		t.Error("cached response differs")
	}
}

func TestServeRaw(t *testing.T) {
	h := newTestServer(prometheus.NewRegistry())
	resp := get(h, "/qr?content=raw&format=raw&scale=1&margin=0", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}

	width, _ := strconv.Atoi(resp.Header().Get("X-Image-Width"))
	rowBytes, _ := strconv.Atoi(resp.Header().Get("X-Row-Bytes"))
	if width == 0 || rowBytes != (width+7)/8 {
		t.Fatalf("geometry headers width=%d rowBytes=%d", width, rowBytes)
	}
	if resp.Body.Len() != width*rowBytes {
		t.Errorf("body = %d bytes, want %d", resp.Body.Len(), width*rowBytes)
	}
}

func TestServeErrors(t *testing.T) {
	h := newTestServer(prometheus.NewRegistry())

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing content", "/qr", http.StatusBadRequest},
		{"bad scale", "/qr?content=x&scale=big", http.StatusBadRequest},
		{"scale out of range", "/qr?content=x&scale=1000", http.StatusBadRequest},
		{"bad level", "/qr?content=x&level=ultra", http.StatusBadRequest},
		{"bad format", "/qr?content=x&format=svg", http.StatusBadRequest},
		{"unknown route", "/nope", http.StatusNotFound},
		{"wrong method", "/qr?content=x", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *httptest.ResponseRecorder
			if tt.want == http.StatusMethodNotAllowed {
				req := httptest.NewRequest(http.MethodPost, tt.target, nil)
				resp = httptest.NewRecorder()
				h.ServeHTTP(resp, req)
			} else {
				resp = get(h, tt.target, nil)
			}
			if resp.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", resp.Code, tt.want, resp.Body.String())
			}
		})
	}
}

func TestServeRequestIDPassthrough(t *testing.T) {
	h := newTestServer(prometheus.NewRegistry())
	id := uuid.NewString()

	resp := get(h, "/healthz", http.Header{requestIDHeader: []string{id}})
	if resp.Header().Get(requestIDHeader) != id {
		t.Errorf("request id = %q, want %q", resp.Header().Get(requestIDHeader), id)
	}

	resp = get(h, "/healthz", http.Header{requestIDHeader: []string{"not-a-uuid"}})
	if got := resp.Header().Get(requestIDHeader); got == "not-a-uuid" {
		t.Error("invalid request ids should be replaced")
	}
}

func TestServeMetrics(t *testing.T) {
	observability.Reset()
	defer observability.Reset()

	reg := prometheus.NewRegistry()
	newMetrics(reg).register()
	h := newTestServer(reg)

	if resp := get(h, "/qr?content=metrics", nil); resp.Code != http.StatusOK {
		t.Fatalf("qr status = %d", resp.Code)
	}

	resp := get(h, "/metrics", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		"qrraster_encode_duration_seconds",
		"qrraster_render_duration_seconds",
		"qrraster_artifact_bytes",
		`qrraster_cache_events_total{event="miss",type="artifact"} 1`,
		`qrraster_http_requests_total{code="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := httpStatus(io.EOF); got != http.StatusInternalServerError {
		t.Errorf("uncoded error status = %d, want 500", got)
	}
}
