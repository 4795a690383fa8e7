package v1_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"
)

func (s *HandlerTestSuite) streamRequest(ctx context.Context, encounterID, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/encounters/"+encounterID+"/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		s.router.ServeHTTP(w, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.T().Fatal("stream handler did not return after context cancellation")
	}
	return w
}

func (s *HandlerTestSuite) TestStreamDeliversSnapshotEvents() {
	created := s.createEncounter("Goblin Ambush")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w := s.streamRequest(ctx, created.ID, s.ownerToken)

	s.Assert().Equal(http.StatusOK, w.Code)
	s.Assert().Equal("text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	s.Assert().True(strings.HasPrefix(body, "data: "), "events use data-only framing")
	s.Assert().Contains(body, `"type":"connection"`)
	s.Assert().Contains(body, `"type":"encounter_update"`)
	s.Assert().Contains(body, created.ID)
}

func (s *HandlerTestSuite) TestStreamDeniedForStranger() {
	created := s.createEncounter("Goblin Ambush")
	strangerToken := s.signToken("user_stranger")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w := s.streamRequest(ctx, created.ID, strangerToken)

	s.Assert().Equal(http.StatusForbidden, w.Code)
	s.Assert().NotEqual("text/event-stream", w.Header().Get("Content-Type"))
}

// The handler must exit promptly on disconnect so subscriptions and their
// heartbeat timers are released.
func (s *HandlerTestSuite) TestStreamReleasesSubscriptionOnDisconnect() {
	created := s.createEncounter("Goblin Ambush")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	s.streamRequest(ctx, created.ID, s.ownerToken)
}
