package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andy6609/helpcentre-queue/internal/journal"
)

type fakeJournal struct {
	records  []journal.Record
	summary  journal.Summary
	err      error
	pingErr  error
	gotLimit int
	gotCode  string
}

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]journal.Record, error) {
	f.gotLimit = limit
	return f.records, f.err
}

func (f *fakeJournal) CourseSummary(_ context.Context, code string) (journal.Summary, error) {
	f.gotCode = code
	f.summary.Course = code
	return f.summary, f.err
}

func (f *fakeJournal) Ping(context.Context) error { return f.pingErr }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "hcq_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	rec := serve(t, NewRouter(nil, reg, quietLogger()), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hcq_test_total 3")
}

func TestRouter_Health(t *testing.T) {
	rec := serve(t, NewRouter(nil, prometheus.NewRegistry(), quietLogger()), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	j := &fakeJournal{pingErr: errors.New("disk gone")}
	rec = serve(t, NewRouter(j, prometheus.NewRegistry(), quietLogger()), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_JournalRoutesNeedJournal(t *testing.T) {
	rec := serve(t, NewRouter(nil, prometheus.NewRegistry(), quietLogger()), "/journal/recent")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Recent(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	j := &fakeJournal{records: []journal.Record{{ID: "x", Type: "assigned", Student: "dave", Course: "CSC108", Ta: "t1", At: at}}}
	router := NewRouter(j, prometheus.NewRegistry(), quietLogger())

	rec := serve(t, router, "/journal/recent?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, j.gotLimit)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []journal.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "dave", got[0].Student)

	serve(t, router, "/journal/recent?limit=100000")
	assert.Equal(t, maxRecent, j.gotLimit)

	rec = serve(t, router, "/journal/recent?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_CourseSummary(t *testing.T) {
	j := &fakeJournal{summary: journal.Summary{Joined: 4, Assigned: 2, AvgWait: time.Minute}}
	router := NewRouter(j, prometheus.NewRegistry(), quietLogger())

	rec := serve(t, router, "/journal/courses/CSC209")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CSC209", j.gotCode)

	var got journal.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 4, got.Joined)
	assert.Equal(t, time.Minute, got.AvgWait)

	j.err = errors.New("locked")
	rec = serve(t, router, "/journal/courses/CSC209")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
