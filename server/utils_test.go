package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestParseConfig(t *testing.T) {
	config, err := parseConfig(strings.NewReader(`// Comment
{
	"listen": ":6080", // trailing comment
	"site_name": "Forum",
	"no_reply": "noreply@example.com",
	"enabled": true,
	"store_config": {"use_adapter": "leveldb"}
}`))
	if err != nil {
		t.Fatal(err)
	}
	if config.Listen != ":6080" || config.SiteName != "Forum" || !config.Enabled {
		t.Errorf("unexpected config %+v", config)
	}
	if string(config.StoreConfig) != `{"use_adapter": "leveldb"}` {
		t.Errorf("unexpected store config %s", config.StoreConfig)
	}
}

func TestParseConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "{\n\t\"listen\": :6080\n}", "syntax error in config file at "},
		{"type", "{\n\t\"enabled\": \"yes\"\n}", "unmarshall error in config file in enabled at "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseConfig(strings.NewReader(tc.src))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), tc.want) {
				t.Errorf("expected error starting with %q, got %q", tc.want, err)
			}
		})
	}
}

func TestValidateSiteURL(t *testing.T) {
	cases := []struct {
		in, want string
		fail     bool
	}{
		{in: "https://forum.example.com/", want: "https://forum.example.com"},
		{in: "http://localhost:8080/forum/", want: "http://localhost:8080"},
		{in: "/forum", fail: true},
		{in: "https://forum.example.com/#top", fail: true},
	}
	for _, tc := range cases {
		got, err := validateSiteURL(tc.in)
		if tc.fail {
			if err == nil {
				t.Errorf("%s: expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%s: expected %q, got %q (%v)", tc.in, tc.want, got, err)
		}
	}
}

func TestTLSRedirect(t *testing.T) {
	cases := []struct {
		port, host, target, want string
	}{
		{":443", "example.com", "/v0/unsubscribe?topic_id=1", "https://example.com/v0/unsubscribe?topic_id=1"},
		{":https", "example.com:80", "/", "https://example.com/"},
		{":8443", "example.com:8080", "/x", "https://example.com:8443/x"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.target, nil)
		req.Host = tc.host
		rec := httptest.NewRecorder()
		tlsRedirect(tc.port)(rec, req)

		if rec.Code != http.StatusTemporaryRedirect {
			t.Errorf("%s: expected 307, got %d", tc.port, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.port, tc.want, loc)
		}
	}
}

func TestParseTLSConfig(t *testing.T) {
	if conf, _, err := parseTLSConfig(false, ""); err != nil || conf != nil {
		t.Errorf("disabled TLS: expected (nil, nil), got (%v, %v)", conf, err)
	}
	if _, _, err := parseTLSConfig(false, `{"enabled": true}`); err == nil {
		t.Error("expected error for missing certificate")
	}
	conf, params, err := parseTLSConfig(false, `{"enabled": true, "cert_file": "c.pem", "key_file": "k.pem"}`)
	if err != nil || conf == nil || params.CertFile != "c.pem" {
		t.Errorf("static certificate: unexpected (%v, %+v, %v)", conf, params, err)
	}
	conf, params, err = parseTLSConfig(false,
		`{"enabled": true, "cert_file": "c.pem", "autocert": {"domains": ["example.com"], "cache": "/tmp/certs"}}`)
	if err != nil || conf == nil || conf.GetCertificate == nil {
		t.Fatalf("autocert: unexpected (%v, %v)", conf, err)
	}
	if params.CertFile != "" {
		t.Error("autocert must ignore static certificate")
	}
}

func TestPromStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newPromStats(reg)

	s.Subscribed()
	s.Subscribed()
	s.Unsubscribed()
	s.Notified(3)
	s.Skipped("reply")
	s.Skipped("reply")
	s.Skipped("topic")

	if v := testutil.ToFloat64(s.subscribed); v != 2 {
		t.Errorf("subscribed: expected 2, got %v", v)
	}
	if v := testutil.ToFloat64(s.unsubscribed); v != 1 {
		t.Errorf("unsubscribed: expected 1, got %v", v)
	}
	if v := testutil.ToFloat64(s.notified); v != 3 {
		t.Errorf("notified: expected 3, got %v", v)
	}
	if v := testutil.ToFloat64(s.skipped.WithLabelValues("reply")); v != 2 {
		t.Errorf("skipped reply: expected 2, got %v", v)
	}

	expected := `
# HELP anonsub_notify_skipped_total Number of replies which triggered no notification, by reason.
# TYPE anonsub_notify_skipped_total counter
anonsub_notify_skipped_total{reason="reply"} 2
anonsub_notify_skipped_total{reason="topic"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "anonsub_notify_skipped_total"); err != nil {
		t.Error(err)
	}
}

func TestStatsEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	if s := statsInit(mux, "-"); s != nil {
		t.Error("metrics must be disabled by '-'")
	}

	s := statsInit(mux, "/metrics")
	s.Subscribed()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "anonsub_subscribed_total 1") {
		t.Error("subscribed counter is missing")
	}
}
