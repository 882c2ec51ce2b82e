package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRequestLoggerAttachesLogger(t *testing.T) {
	t.Parallel()

	var attached bool
	handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attached = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/halls", nil))
	if !attached {
		t.Fatal("expected request logger in context")
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests beyond the burst", func(t *testing.T) {
		t.Parallel()
		rl := NewRateLimiter(1, 2, discardLogger())
		now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }
		handler := rl.Middleware(okHandler())

		codes := make([]int, 0, 3)
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodGet, "/halls", nil)
			req.RemoteAddr = "10.0.0.1:5000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			codes = append(codes, rec.Code)
			if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
				t.Fatal("expected Retry-After header")
			}
		}
		if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
			t.Fatalf("codes = %v", codes)
		}
	})

	t.Run("tracks clients independently", func(t *testing.T) {
		t.Parallel()
		rl := NewRateLimiter(1, 1, discardLogger())
		now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }

		if !rl.allow("10.0.0.1") {
			t.Fatal("first client should be allowed")
		}
		if !rl.allow("10.0.0.2") {
			t.Fatal("second client should be allowed")
		}
		if rl.allow("10.0.0.1") {
			t.Fatal("first client should be limited")
		}
	})

	t.Run("forgets idle clients", func(t *testing.T) {
		t.Parallel()
		rl := NewRateLimiter(1, 1, discardLogger())
		now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }

		rl.allow("10.0.0.1")
		now = now.Add(11 * time.Minute)
		rl.allow("10.0.0.2")
		if _, ok := rl.visitors["10.0.0.1"]; ok {
			t.Fatal("idle visitor should have been swept")
		}
	})
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	if got := clientKey(req); got != "192.0.2.7" {
		t.Fatalf("clientKey = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientKey(req); got != "203.0.113.9" {
		t.Fatalf("clientKey with forwarded = %q", got)
	}
}

func TestCORSExposesETag(t *testing.T) {
	t.Parallel()

	handler := CORS([]string{"https://rooms.example.edu"})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/halls", nil)
	req.Header.Set("Origin", "https://rooms.example.edu")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://rooms.example.edu" {
		t.Fatalf("allow origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != "Etag" && got != "ETag" {
		t.Fatalf("expose headers = %q", got)
	}
}

func TestMatchesETag(t *testing.T) {
	t.Parallel()

	tag := `"abc"`
	cases := map[string]bool{
		"":           false,
		"*":          true,
		`"abc"`:      true,
		`W/"abc"`:    true,
		`"x", "abc"`: true,
		`"other"`:    false,
	}
	for header, want := range cases {
		if got := matchesETag(header, tag); got != want {
			t.Errorf("matchesETag(%q) = %v, want %v", header, got, want)
		}
	}
}
