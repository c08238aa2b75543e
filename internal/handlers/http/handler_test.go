package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/gamemaster-api/internal/dice"
	handler "github.com/KirkDiggler/gamemaster-api/internal/handlers/http"
	session "github.com/KirkDiggler/gamemaster-api/internal/orchestrators/session"
	"github.com/KirkDiggler/gamemaster-api/internal/pkg/idgen"
	sessionrepo "github.com/KirkDiggler/gamemaster-api/internal/repositories/session"
	"github.com/KirkDiggler/gamemaster-api/internal/testutils"
)

type HandlerTestSuite struct {
	suite.Suite
	cleanup func()
	router  *gin.Engine
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup

	repo, err := sessionrepo.NewRedis(&sessionrepo.RedisConfig{Client: client})
	s.Require().NoError(err)

	svc, err := session.NewOrchestrator(&session.Config{
		SessionRepo: repo,
		Roller:      dice.NewSequenceRoller(15, 8),
		IDGenerator: idgen.NewSequential("sess"),
	})
	s.Require().NoError(err)

	h, err := handler.NewHandler(&handler.Config{SessionService: svc})
	s.Require().NoError(err)

	s.router = gin.New()
	h.RegisterRoutes(s.router)
}

func (s *HandlerTestSuite) TearDownTest() {
	s.cleanup()
}

func (s *HandlerTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *HandlerTestSuite) createSession() (id string, version int64) {
	w := s.do(http.MethodPost, "/v1/sessions", gin.H{
		"campaign_id": "camp_1",
		"location":    "forest clearing",
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	body := s.decode(w)
	sess := body["session"].(map[string]any)
	return sess["id"].(string), int64(sess["version"].(float64))
}

func (s *HandlerTestSuite) TestHealth() {
	w := s.do(http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerTestSuite) TestCreateAndGetSession() {
	id, version := s.createSession()
	s.Equal(int64(1), version)

	w := s.do(http.MethodGet, "/v1/sessions/"+id, nil)
	s.Equal(http.StatusOK, w.Code)

	sess := s.decode(w)["session"].(map[string]any)
	s.Equal("forest clearing", sess["location"])
	s.Equal("active", sess["status"])
}

func (s *HandlerTestSuite) TestCreateSession_MissingCampaign() {
	w := s.do(http.MethodPost, "/v1/sessions", gin.H{"location": "nowhere"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("INVALID_ARGUMENT", s.decode(w)["code"])
}

func (s *HandlerTestSuite) TestGetSession_NotFound() {
	w := s.do(http.MethodGet, "/v1/sessions/sess_missing", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("NOT_FOUND", s.decode(w)["code"])
}

func (s *HandlerTestSuite) TestCombatFlow() {
	id, version := s.createSession()

	w := s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/combat/start", id), gin.H{
		"expected_version": version,
		"participants": []gin.H{
			{"id": "fighter", "name": "Brienne", "type": "player", "max_hp": 14, "initiative": 18},
			{"id": "goblin-1", "name": "Goblin", "type": "monster", "max_hp": 7, "initiative": 12},
		},
	})
	s.Require().Equal(http.StatusOK, w.Code)

	sess := s.decode(w)["session"].(map[string]any)
	combatState := sess["combat"].(map[string]any)
	s.Equal(float64(1), combatState["round"])

	w = s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/combat/advance", id), gin.H{
		"expected_version": sess["version"],
	})
	s.Require().Equal(http.StatusOK, w.Code)

	body := s.decode(w)
	s.Equal(false, body["combat_ended"])
	s.Equal("goblin-1", body["current"].(map[string]any)["id"])
}

func (s *HandlerTestSuite) TestStartCombat_StaleVersionConflicts() {
	id, _ := s.createSession()

	w := s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/combat/start", id), gin.H{
		"expected_version": 99,
		"participants": []gin.H{
			{"id": "fighter", "type": "player", "max_hp": 14, "initiative": 18},
		},
	})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("VERSION_CONFLICT", s.decode(w)["code"])
}

func (s *HandlerTestSuite) TestSubmitNarration() {
	id, _ := s.createSession()

	w := s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/narration", id), gin.H{
		"text": `{"narrative": "Night falls.", "location": "camp"}`,
	})
	s.Require().Equal(http.StatusOK, w.Code)

	body := s.decode(w)
	s.Equal("Night falls.", body["narrative"])
	s.Equal("camp", body["session"].(map[string]any)["location"])
}

func (s *HandlerTestSuite) TestRollDice() {
	w := s.do(http.MethodPost, "/v1/dice/roll", gin.H{"notation": "2d6+3"})
	s.Require().Equal(http.StatusOK, w.Code)

	result := s.decode(w)["result"].(map[string]any)
	s.Equal("2d6+3", result["notation"])
	// SequenceRoller: 15 + 8 + 3
	s.Equal(float64(26), result["total"])
}

func (s *HandlerTestSuite) TestRollDice_BadNotation() {
	w := s.do(http.MethodPost, "/v1/dice/roll", gin.H{"notation": "2dsix"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestPauseEndLifecycle() {
	id, _ := s.createSession()

	w := s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/pause", id), nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/resume", id), nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPut, fmt.Sprintf("/v1/sessions/%s/summary", id), gin.H{
		"summary": "The party made camp.",
	})
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/end", id), nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ended", s.decode(w)["session"].(map[string]any)["status"])

	// Ended sessions refuse further mutation
	w = s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/end", id), nil)
	s.Equal(http.StatusPreconditionFailed, w.Code)
}
