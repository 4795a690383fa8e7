package v1_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"github.com/critfumble/encounter-api/internal/auth"
	"github.com/critfumble/encounter-api/internal/entities"
	v1 "github.com/critfumble/encounter-api/internal/handlers/api/v1"
	"github.com/critfumble/encounter-api/internal/orchestrators/encounter"
	"github.com/critfumble/encounter-api/internal/pkg/idgen"
	"github.com/critfumble/encounter-api/internal/repositories/encounters"
	"github.com/critfumble/encounter-api/internal/streaming"
)

const testSecret = "handler-test-secret"

type HandlerTestSuite struct {
	suite.Suite
	router     *gin.Engine
	ownerToken string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	repo := encounters.NewInMemory(nil)
	streams := streaming.New(&streaming.Config{
		HeartbeatInterval: time.Minute,
		BufferSize:        16,
	})

	svc, err := encounter.NewOrchestrator(&encounter.Config{
		Repository:     repo,
		Broadcaster:    streams,
		EncounterIDs:   idgen.NewSequential("enc"),
		ParticipantIDs: idgen.NewSequential("part"),
	})
	s.Require().NoError(err)

	handler, err := v1.NewHandler(&v1.HandlerConfig{
		EncounterService: svc,
		Streams:          streams,
	})
	s.Require().NoError(err)

	s.router = gin.New()
	handler.RegisterRoutes(s.router, auth.Middleware(testSecret))

	s.ownerToken = s.signToken("user_owner")
}

func (s *HandlerTestSuite) signToken(subject string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	s.Require().NoError(err)
	return signed
}

func (s *HandlerTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) decodeEncounter(w *httptest.ResponseRecorder) *entities.Encounter {
	var enc entities.Encounter
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &enc))
	return &enc
}

func (s *HandlerTestSuite) createEncounter(name string) *entities.Encounter {
	w := s.do(http.MethodPost, "/api/v1/encounters", s.ownerToken, gin.H{"name": name})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return s.decodeEncounter(w)
}

func (s *HandlerTestSuite) addGoblin(encounterID string) *entities.Encounter {
	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/encounters/%s/participants", encounterID), s.ownerToken, gin.H{
		"type":       "creature",
		"name":       "Goblin",
		"initiative": 12,
		"currentHp":  7,
		"maxHp":      7,
		"ac":         15,
		"creatureId": "creature_goblin",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return s.decodeEncounter(w)
}

func (s *HandlerTestSuite) TestHealthIsUnauthenticated() {
	w := s.do(http.MethodGet, "/healthz", "", nil)

	s.Assert().Equal(http.StatusOK, w.Code)
}

func (s *HandlerTestSuite) TestAPIRequiresAuthentication() {
	w := s.do(http.MethodGet, "/api/v1/encounters", "", nil)

	s.Assert().Equal(http.StatusUnauthorized, w.Code)
	s.Assert().Contains(w.Body.String(), "UNAUTHENTICATED")
}

func (s *HandlerTestSuite) TestEncounterLifecycle() {
	created := s.createEncounter("Goblin Ambush")
	s.Assert().Equal("planning", string(created.Status))

	w := s.do(http.MethodGet, "/api/v1/encounters/"+created.ID, s.ownerToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Assert().Equal(created.ID, s.decodeEncounter(w).ID)

	w = s.do(http.MethodGet, "/api/v1/encounters", s.ownerToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var list v1.ListEncountersResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))
	s.Require().Len(list.Encounters, 1)

	w = s.do(http.MethodPut, "/api/v1/encounters/"+created.ID, s.ownerToken, gin.H{
		"description": "An ambush on the Triboar Trail",
	})
	s.Require().Equal(http.StatusOK, w.Code)
	updated := s.decodeEncounter(w)
	s.Assert().Equal("Goblin Ambush", updated.Name)
	s.Assert().Equal("An ambush on the Triboar Trail", updated.Description)

	w = s.do(http.MethodDelete, "/api/v1/encounters/"+created.ID, s.ownerToken, nil)
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/v1/encounters/"+created.ID, s.ownerToken, nil)
	s.Assert().Equal(http.StatusNotFound, w.Code)
	s.Assert().Contains(w.Body.String(), "NOT_FOUND")
}

func (s *HandlerTestSuite) TestCombatFlow() {
	created := s.createEncounter("Goblin Ambush")

	// Empty roster blocks the start.
	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/encounters/%s/start", created.ID), s.ownerToken, nil)
	s.Assert().Equal(http.StatusBadRequest, w.Code)
	s.Assert().Contains(w.Body.String(), "FAILED_PRECONDITION")

	enc := s.addGoblin(created.ID)
	participantID := enc.Participants[0].ID

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/encounters/%s/start", created.ID), s.ownerToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	started := s.decodeEncounter(w)
	s.Assert().Equal("active", string(started.Status))
	s.Assert().Equal(1, started.Round)
	s.Assert().Equal(0, started.Turn)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/encounters/%s/participants/%s/hp", created.ID, participantID), s.ownerToken, gin.H{
		"damage": 3,
	})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Assert().Equal(4, s.decodeEncounter(w).Participants[0].CurrentHP)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/encounters/%s/turn", created.ID), s.ownerToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	advanced := s.decodeEncounter(w)
	s.Assert().Equal(2, advanced.Round, "single-participant turn wraps to the next round")
	s.Assert().Equal(0, advanced.Turn)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/encounters/%s/end", created.ID), s.ownerToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Assert().Equal("completed", string(s.decodeEncounter(w).Status))
}

func (s *HandlerTestSuite) TestStrangerIsForbidden() {
	created := s.createEncounter("Goblin Ambush")
	strangerToken := s.signToken("user_stranger")

	w := s.do(http.MethodGet, "/api/v1/encounters/"+created.ID, strangerToken, nil)

	s.Assert().Equal(http.StatusForbidden, w.Code)
	s.Assert().Contains(w.Body.String(), "PERMISSION_DENIED")
}

func (s *HandlerTestSuite) TestUnknownParticipantIsMismatch() {
	created := s.createEncounter("Goblin Ambush")
	s.addGoblin(created.ID)

	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/encounters/%s/participants/%s/hp", created.ID, "part_missing"), s.ownerToken, gin.H{
		"damage": 1,
	})

	s.Assert().Equal(http.StatusNotFound, w.Code)
	s.Assert().Contains(w.Body.String(), "PARTICIPANT_MISMATCH")
}

func (s *HandlerTestSuite) TestMalformedBodyIsBadRequest() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/encounters", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.ownerToken)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Assert().Equal(http.StatusBadRequest, w.Code)
	s.Assert().Contains(w.Body.String(), "INVALID_ARGUMENT")
}

func (s *HandlerTestSuite) TestValidationErrorIsBadRequest() {
	w := s.do(http.MethodPost, "/api/v1/encounters", s.ownerToken, gin.H{"name": "   "})

	s.Assert().Equal(http.StatusBadRequest, w.Code)
	s.Assert().Contains(w.Body.String(), "INVALID_ARGUMENT")
}
