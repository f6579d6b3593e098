package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/complaints-api/internal/config"
	"github.com/kirillkom/complaints-api/internal/core/domain"
)

func postComplaint(handler http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/complaints", strings.NewReader(`{"text":"payment failed"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitRejectsBurstOverflowOnIntake(t *testing.T) {
	intake := &intakeFake{complaint: &domain.Complaint{
		ID: 1, Status: domain.StatusOpen, Sentiment: domain.SentimentNegative, Category: domain.CategoryPayment,
	}}
	handler := newTestHandler(t, config.Config{APIRateLimitRPS: 0.5, APIRateLimitBurst: 1}, intake, nil)

	require.Equal(t, http.StatusCreated, postComplaint(handler).Code)

	limited := postComplaint(handler)
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "2", limited.Header().Get("Retry-After"))

	var body errorResponse
	require.NoError(t, json.NewDecoder(limited.Body).Decode(&body))
	assert.Equal(t, "rate limit exceeded", body.Error)
}

func TestRateLimitDisabledByDefault(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, nil, nil)
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestBackpressureShedsLoadWhileSlotIsHeld(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	firstCode := make(chan int, 1)

	gate := backpressureMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		entered <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	}), 1, 20*time.Millisecond)

	go func() {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/complaints/1/close", nil))
		firstCode <- rec.Code
	}()
	<-entered

	shed := httptest.NewRecorder()
	gate.ServeHTTP(shed, httptest.NewRequest(http.MethodPatch, "/complaints/2/close", nil))
	require.Equal(t, http.StatusServiceUnavailable, shed.Code)
	assert.Equal(t, "1", shed.Header().Get("Retry-After"))
	assert.Contains(t, shed.Body.String(), "overloaded")

	close(release)
	select {
	case code := <-firstCode:
		assert.Equal(t, http.StatusNoContent, code)
	case <-time.After(time.Second):
		t.Fatal("held request never completed")
	}
}

func TestBackpressureAdmitsWhenSlotFreesWithinWait(t *testing.T) {
	gate := backpressureMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	}), 1, time.Second)

	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			rec := httptest.NewRecorder()
			gate.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/complaints/3/close", nil))
			codes <- rec.Code
		}()
	}
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNoContent, <-codes)
	}
}
