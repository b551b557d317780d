package httpclient

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		opts    Options
		wantErr string
	}{
		{name: "sheet export", url: "https://docs.google.com/spreadsheets/d/abc/export?format=csv"},
		{name: "ftp scheme", url: "ftp://example.com/list.csv", wantErr: "not allowed"},
		{name: "credentials", url: "http://user@example.com/", wantErr: "credentials"},
		{name: "localhost", url: "http://localhost:8080/", wantErr: "localhost"},
		{name: "sub.localhost", url: "http://a.localhost/", wantErr: "localhost"},
		{name: "private ip", url: "http://192.168.1.10/", wantErr: "private"},
		{name: "loopback ip", url: "http://127.0.0.1/", wantErr: "private"},
		{name: "private allowed", url: "http://127.0.0.1/", opts: Options{AllowPrivate: true}},
		{name: "no host", url: "http:///path", wantErr: "hostname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)

			err = ValidateURL(u, tt.opts)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	for ip, want := range map[string]bool{
		"10.1.2.3":     true,
		"172.20.0.1":   true,
		"192.168.0.1":  true,
		"127.0.0.1":    true,
		"169.254.1.1":  true,
		"::1":          true,
		"fe80::1":      true,
		"fd00::1":      true,
		"8.8.8.8":      false,
		"142.250.1.1":  false,
		"2001:4860::1": false,
	} {
		assert.Equal(t, want, IsPrivateIP(net.ParseIP(ip)), ip)
	}
}

func TestDialBlocksLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	blocked := New(Options{Timeout: 2 * time.Second})
	_, err := blocked.Get(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private IP address blocked")

	allowed := New(Options{Timeout: 2 * time.Second, AllowPrivate: true})
	resp, err := allowed.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/again", http.StatusFound)
	}))
	defer srv.Close()

	client := New(Options{Timeout: 2 * time.Second, AllowPrivate: true, MaxRedirects: 3})
	_, err := client.Get(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 3 redirects")
}
