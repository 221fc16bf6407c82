package pprofserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/testutil/testlog"
)

func serve(t *testing.T, h http.Handler, remote, path string, creds ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://profiler"+path, nil)
	req.RemoteAddr = remote
	if len(creds) == 2 {
		req.SetBasicAuth(creds[0], creds[1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandler_Access(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		cfg    Config
		remote string
		creds  []string
		want   int
	}{
		{name: "loopback v4", remote: "127.0.0.1:40000", want: http.StatusOK},
		{name: "loopback v6", remote: "[::1]:40000", want: http.StatusOK},
		{name: "mapped loopback", remote: "[::ffff:127.0.0.1]:40000", want: http.StatusOK},
		{name: "remote without configured creds", remote: "10.1.2.3:5000", creds: []string{"u", "p"}, want: http.StatusUnauthorized},
		{name: "remote wrong password", cfg: Config{User: "u", Pass: "p"}, remote: "10.1.2.3:5000", creds: []string{"u", "nope"}, want: http.StatusUnauthorized},
		{name: "remote no header", cfg: Config{User: "u", Pass: "p"}, remote: "10.1.2.3:5000", want: http.StatusUnauthorized},
		{name: "remote correct creds", cfg: Config{User: "u", Pass: "p"}, remote: "10.1.2.3:5000", creds: []string{"u", "p"}, want: http.StatusOK},
		{name: "garbage remote addr", remote: "not-an-ip:1", want: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rr := serve(t, Handler(tc.cfg, logx.Nop()), tc.remote, "/debug/pprof/", tc.creds...)
			require.Equal(t, tc.want, rr.Code)
			if tc.want == http.StatusUnauthorized {
				assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestHandler_DeniedRequestIsLogged(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	rr := serve(t, Handler(Config{}, rec.Logger()), "192.0.2.7:1", "/debug/pprof/heap")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	e, ok := rec.Find("pprof access denied")
	require.True(t, ok)
	assert.Equal(t, "warn", e.Level)
}

func TestHandler_NamedProfile(t *testing.T) {
	t.Parallel()

	rr := serve(t, Handler(Config{}, nil), "127.0.0.1:1", "/debug/pprof/goroutine?debug=1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "goroutine")
}

func TestNewServer_Timeouts(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{Addr: "127.0.0.1:6060"}, logx.Nop())
	require.Equal(t, "127.0.0.1:6060", srv.Addr)
	assert.GreaterOrEqual(t, srv.WriteTimeout, 30*time.Second)
	assert.Positive(t, srv.ReadHeaderTimeout)
}
