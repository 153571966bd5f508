package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sentinal-safety/config"
	"sentinal-safety/internal/eligibility"
	"sentinal-safety/internal/handler"
	"sentinal-safety/internal/ratelimit"
	"sentinal-safety/internal/repository/memory"
	"sentinal-safety/internal/services"
	"sentinal-safety/internal/transport/httpdto"
	"sentinal-safety/internal/websocket"
	"sentinal-safety/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

const messageQuota = 6

type RouterSuite struct {
	suite.Suite
	server *Server
	auth   *services.AuthService

	alice, bob, admin uuid.UUID
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	cfg := &config.Config{AppMode: TestMode, AppPort: "0", Moderation: config.DefaultModeration()}
	store := memory.NewStore()
	hub := websocket.NewHub()

	s.auth = services.NewAuthService("test-secret", "sentinal-safety")
	messages := services.NewMessageService(store, hub, cfg.Moderation, nil)
	conversations := services.NewConversationService(store, eligibility.Permissive(), messages, nil)
	moderation := services.NewModerationService(store, nil, cfg.Moderation, nil)
	reports := services.NewReportService(store, messages, moderation, nil, cfg.Moderation, nil)

	s.server = New(cfg, logger.NewNop())
	s.server.SetupRoutes(&Handlers{
		Conversation: handler.NewConversationHandler(conversations),
		Message:      handler.NewMessageHandler(messages),
		Block:        handler.NewBlockHandler(services.NewBlockService(store)),
		Report:       handler.NewReportHandler(reports, services.NewEvidenceService(nil), cfg.Moderation.ReviewContextMessages),
		Moderation:   handler.NewModerationHandler(moderation),
	}, Deps{
		Auth: s.auth,
		Limiter: ratelimit.NewLocal(ratelimit.Config{
			MessageLimit:  messageQuota,
			MessageWindow: time.Minute,
			ReportLimit:   10,
			ReportWindow:  time.Hour,
		}),
	})

	s.alice, s.bob, s.admin = uuid.New(), uuid.New(), uuid.New()
}

func (s *RouterSuite) token(userID uuid.UUID, role string) string {
	tok, err := s.auth.IssueAccessToken(userID, role, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) do(method, path string, as uuid.UUID, role string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+s.token(as, role))
	}
	w := httptest.NewRecorder()
	s.server.Engine().ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) openRoom() string {
	w := s.do(http.MethodPost, "/v1/conversations", s.alice, "", httpdto.OpenConversationRequest{
		OtherPartyID: s.bob.String(),
		Context:      "job",
		ContextRef:   "job-42",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp httpdto.Response[httpdto.OpenConversationResponse]
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.True(resp.Created)
	s.Equal(s.bob.String(), resp.Data.Conversation.OtherParty)
	return resp.Data.Conversation.ID
}

func (s *RouterSuite) errorCode(w *httptest.ResponseRecorder) string {
	var resp httpdto.Response[any]
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.False(resp.Success)
	return resp.Code
}

func (s *RouterSuite) TestPing() {
	w := s.do(http.MethodGet, "/ping", uuid.Nil, "", nil)
	s.Equal(http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/health", uuid.Nil, "", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestRequiresToken() {
	w := s.do(http.MethodGet, "/v1/conversations", uuid.Nil, "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("UNAUTHORIZED", s.errorCode(w))
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestAdminRoutesRequireRole() {
	w := s.do(http.MethodGet, "/v1/admin/reports", s.alice, "", nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/v1/admin/reports", s.admin, services.RoleAdmin, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestOpenIsIdempotent() {
	id := s.openRoom()

	w := s.do(http.MethodPost, "/v1/conversations", s.bob, "", httpdto.OpenConversationRequest{
		OtherPartyID: s.alice.String(),
		Context:      "job",
		ContextRef:   "job-42",
	})
	s.Equal(http.StatusOK, w.Code)
	var resp httpdto.Response[httpdto.OpenConversationResponse]
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.False(resp.Data.Created)
	s.Equal(id, resp.Data.Conversation.ID)
}

func (s *RouterSuite) TestValidationErrors() {
	w := s.do(http.MethodPost, "/v1/conversations", s.alice, "", map[string]string{"context": "job"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/conversations", s.alice, "", httpdto.OpenConversationRequest{
		OtherPartyID: s.alice.String(),
		Context:      "job",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("INVALID_REQUEST", s.errorCode(w))

	w = s.do(http.MethodGet, "/v1/conversations/not-a-uuid", s.alice, "", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/conversations/"+uuid.NewString(), s.alice, "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterSuite) TestSendIntoBlockedRoomConflicts() {
	id := s.openRoom()

	w := s.do(http.MethodPost, "/v1/conversations/"+id+"/messages", s.alice, "", httpdto.SendMessageRequest{Content: "hi"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/blocks/"+s.alice.String(), s.bob, "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/conversations/"+id+"/messages", s.alice, "", httpdto.SendMessageRequest{Content: "hello?"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("INVALID_TRANSITION", s.errorCode(w))

	w = s.do(http.MethodPost, "/v1/unblocks/"+s.alice.String(), s.bob, "", nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, "/v1/conversations/"+id+"/messages", s.alice, "", httpdto.SendMessageRequest{Content: "hello again"})
	s.Equal(http.StatusCreated, w.Code)
}

func (s *RouterSuite) TestOutsiderIsForbidden() {
	id := s.openRoom()
	w := s.do(http.MethodGet, "/v1/conversations/"+id+"/messages", uuid.New(), "", nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *RouterSuite) TestDuplicateReportIsRateLimited() {
	id := s.openRoom()
	req := httpdto.FileReportRequest{
		RoomID:      id,
		ReportedID:  s.bob.String(),
		Type:        "harassment",
		Description: "abusive messages",
	}

	w := s.do(http.MethodPost, "/v1/reports", s.alice, "", req)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/reports", s.alice, "", req)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal("RATE_LIMITED", s.errorCode(w))
}

func (s *RouterSuite) TestEvidenceUploadWithoutStorage() {
	w := s.do(http.MethodPost, "/v1/reports/evidence-uploads", s.alice, "", httpdto.EvidenceUploadRequest{
		FileName:    "shot.png",
		ContentType: "image/png",
		FileSize:    1024,
	})
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("INTERNAL_ERROR", s.errorCode(w))
}

func (s *RouterSuite) TestMessageQuota() {
	id := s.openRoom()

	for i := 1; i < messageQuota; i++ {
		w := s.do(http.MethodPost, "/v1/conversations/"+id+"/messages", s.alice, "", httpdto.SendMessageRequest{Content: "hi"})
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(http.MethodPost, "/v1/conversations/"+id+"/messages", s.alice, "", httpdto.SendMessageRequest{Content: "one too many"})
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal("RATE_LIMITED", s.errorCode(w))
	s.Equal("6", w.Header().Get("X-RateLimit-Limit"))
	s.Equal("0", w.Header().Get("X-RateLimit-Remaining"))

	w = s.do(http.MethodPost, "/v1/conversations/"+id+"/messages", s.bob, "", httpdto.SendMessageRequest{Content: "my quota is separate"})
	s.Equal(http.StatusCreated, w.Code)
}
