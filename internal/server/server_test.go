package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/ledger"
	"github.com/bbeale/GitTreasures/internal/logger"
	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrigger struct {
	mu   sync.Mutex
	seen []models.RunMode
	err  error
}

func (f *fakeTrigger) Run(_ context.Context, opts runner.Options) (*runner.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, opts.Mode)
	if f.err != nil {
		return nil, f.err
	}
	return &runner.Report{}, nil
}

type fakeHistory struct {
	commit *models.CommitRecord
	run    *models.RunSummary
	err    error
}

func (f *fakeHistory) HighestKnownCommit(context.Context) (*models.CommitRecord, error) {
	return f.commit, f.err
}

func (f *fakeHistory) LastRun(context.Context) (*models.RunSummary, error) {
	return f.run, f.err
}

func newTestServer(tr Trigger, h History) *Server {
	return New(config.ServerConfig{Addr: ":0"}, tr, h, logger.Nop())
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeTrigger{}, &fakeHistory{})
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusPage(t *testing.T) {
	at := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	h := &fakeHistory{
		commit: &models.CommitRecord{Seq: 4, Hash: "abc123", CommittedAt: at, AuthorName: "Dev", Message: "ABC-1 fix"},
		run:    &models.RunSummary{ID: "run-1", Mode: "normal", Created: 2},
	}
	s := newTestServer(&fakeTrigger{}, h)

	for _, path := range []string{"/", "/index.html"} {
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)

		var body Status
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, body.LatestCommit)
		assert.Equal(t, "abc123", body.LatestCommit.Hash)
		assert.True(t, body.LatestCommit.CommittedAt.Equal(at))
		require.NotNil(t, body.LastRun)
		assert.Equal(t, "run-1", body.LastRun.ID)
	}
}

func TestStatusPageOnEmptyLedger(t *testing.T) {
	s := newTestServer(&fakeTrigger{}, &fakeHistory{})
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Nil(t, body.LatestCommit)
	assert.Nil(t, body.LastRun)
}

func TestStatusPageError(t *testing.T) {
	s := newTestServer(&fakeTrigger{}, &fakeHistory{err: errors.New("disk I/O error")})
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestTriggerRoutes(t *testing.T) {
	tests := []struct {
		path string
		mode models.RunMode
	}{
		{"/git_treasures", models.RunMode{}},
		{"/git_treasures_dev", models.RunMode{TestMode: true}},
		{"/git_treasures_testrail", models.RunMode{TestRail: true}},
		{"/git_treasures_testrail_dev", models.RunMode{TestRail: true, TestMode: true}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			tr := &fakeTrigger{}
			s := newTestServer(tr, &fakeHistory{})

			resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/", resp.Header.Get("Location"))
			assert.Equal(t, []models.RunMode{tt.mode}, tr.seen)
		})
	}
}

func TestTriggerConflicts(t *testing.T) {
	for _, cause := range []error{runner.ErrBusy, ledger.ErrLocked} {
		s := newTestServer(&fakeTrigger{err: cause}, &fakeHistory{})
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/git_treasures", nil))
		require.NoError(t, err)

		var body errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, cause.Error(), body.Error)
	}
}

func TestTriggerFailure(t *testing.T) {
	s := newTestServer(&fakeTrigger{err: errors.New("populate ledger: boom")}, &fakeHistory{})
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/git_treasures_dev", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(&fakeTrigger{}, &fakeHistory{})
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/git_treasures_prod", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
