package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tesserax/reml/log"
	"github.com/tesserax/reml/prover"
)

func newTestServer(t *testing.T, cfg Config) (*Collector, *httptest.Server) {
	t.Helper()
	c := newTestCollector(t, cfg, &fakeProver{})
	srv := httptest.NewServer(NewServer(c, cfg, log.Discard()).Handler())
	t.Cleanup(srv.Close)
	return c, srv
}

func postJSON(t *testing.T, url, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestServerSubmit(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t))

	body, err := json.Marshal(sizedRequest(7))
	require.NoError(t, err)
	code, data := postJSON(t, srv.URL+PathSubmit, string(body))
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"status":"accepted","request_id":7,"pending":1}`, string(data))

	for id := uint64(8); id < 10; id++ {
		body, err = json.Marshal(sizedRequest(id))
		require.NoError(t, err)
		code, data = postJSON(t, srv.URL+PathSubmit, string(body))
		require.Equal(t, http.StatusOK, code)
	}
	require.JSONEq(t, `{"status":"accepted","request_id":9,"batch_triggered":1}`, string(data))
}

func TestServerSubmitMalformed(t *testing.T) {
	c, srv := newTestServer(t, testConfig(t))

	code, data := postJSON(t, srv.URL+PathSubmit, `{not json`)
	require.Equal(t, http.StatusBadRequest, code)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(data, &e))
	require.Contains(t, e.Error, "invalid JSON")

	req := sizedRequest(1)
	req.Signature = req.Signature[:100]
	body, err := json.Marshal(req)
	require.NoError(t, err)
	code, data = postJSON(t, srv.URL+PathSubmit, string(body))
	require.Equal(t, http.StatusBadRequest, code)
	require.JSONEq(t, `{"error":"invalid signature or public key size"}`, string(data))

	code, _ = postJSON(t, srv.URL+PathSubmit, strings.Repeat("x", int(DefaultConfig().MaxRequestSize)+1))
	require.Equal(t, http.StatusRequestEntityTooLarge, code)

	require.Empty(t, c.PendingIDs())
}

func TestServerSubmitFull(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 2
	cfg.MaxProvers = 1
	cfg.MaxPending = 2
	_, srv := newTestServer(t, cfg)

	// One batch queued, two requests pending.
	var code int
	for id := uint64(0); id < 4; id++ {
		body, err := json.Marshal(sizedRequest(id))
		require.NoError(t, err)
		code, _ = postJSON(t, srv.URL+PathSubmit, string(body))
		require.Equal(t, http.StatusOK, code, "request %d", id)
	}
	body, err := json.Marshal(sizedRequest(4))
	require.NoError(t, err)
	code, data := postJSON(t, srv.URL+PathSubmit, string(body))
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Contains(t, string(data), "pending buffer full")
}

func TestServerStatusAndBatch(t *testing.T) {
	c, srv := newTestServer(t, testConfig(t))
	for id := uint64(10); id < 14; id++ {
		_, err := c.Submit(sizedRequest(id))
		require.NoError(t, err)
	}

	resp, err := http.Get(srv.URL + PathStatus)
	require.NoError(t, err)
	var st StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	require.Equal(t, "running", st.Status)
	require.Equal(t, 1, st.PendingRequests)
	require.Equal(t, 3, st.BatchSize)
	require.Equal(t, uint64(1), st.BatchesCompleted)

	resp, err = http.Get(srv.URL + PathBatch)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.JSONEq(t, `{"pending_count":1,"batch_size":3,"request_ids":[13]}`, string(data))
}

func TestServerNotFoundAndMetrics(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t))

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + PathMetrics)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(data), "reml_collector_submitted_total")
}

func TestClient(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t))
	cl := NewClient(srv.URL+"/", nil)
	ctx := context.Background()

	res, err := cl.Submit(ctx, sizedRequest(3))
	require.NoError(t, err)
	require.Equal(t, "accepted", res.Status)
	require.NotNil(t, res.Pending)
	require.Equal(t, 1, *res.Pending)
	require.Nil(t, res.BatchTriggered)

	st, err := cl.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, st.PendingRequests)

	b, err := cl.Batch(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint64{3}, b.RequestIDs)

	bad := sizedRequest(4)
	bad.PublicKey = nil
	_, err = cl.Submit(ctx, bad)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestServiceEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 2
	cfg.Mock = true
	svc, err := NewService(cfg, log.Discard())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunListener(ctx, ln) }()

	cl := NewClient("http://"+ln.Addr().String(), nil)
	var last *SubmitResponse
	for _, req := range prover.GenerateTestBatch(2, false) {
		require.Eventually(t, func() bool {
			last, err = cl.Submit(ctx, req)
			return err == nil
		}, 5*time.Second, 20*time.Millisecond)
	}
	require.NotNil(t, last.BatchTriggered)
	require.Equal(t, uint64(1), *last.BatchTriggered)

	require.Eventually(t, func() bool {
		return svc.Collector().Status().ProofsGenerated == 1
	}, 10*time.Second, 20*time.Millisecond)
	bundle, err := prover.LoadBundle(svc.Collector().ProofPath(1))
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1}, bundle.Output.VerifiedRequestIDs)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not stop")
	}
}
