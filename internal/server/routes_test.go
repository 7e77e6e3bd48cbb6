package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hospitaldesk/internal/config"
	"hospitaldesk/internal/middlewares"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/services"
)

// MockDBService is a mock implementation of database.Service for testing
type MockDBService struct {
	down bool
}

func (m *MockDBService) Health() map[string]string {
	if m.down {
		return map[string]string{"message": "db down", "error": "connection refused"}
	}
	return map[string]string{"message": "It's healthy"}
}

func (m *MockDBService) Client() *mongo.Client { return nil }
func (m *MockDBService) Database() *mongo.Database { return nil }
func (m *MockDBService) Close(ctx context.Context) error { return nil }

type stubOTPService struct {
	services.OTPService
	requestErr error
	verified   string
}

func (s *stubOTPService) RequestCode(_ context.Context, _ string) (int, error) {
	if s.requestErr != nil {
		return 0, s.requestErr
	}
	return 300, nil
}

func (s *stubOTPService) VerifyCode(_ context.Context, phone, _ string) (*models.AuthResult, error) {
	s.verified = phone
	return &models.AuthResult{User: &models.User{Email: "rina@example.com"}, TokenPair: models.TokenPair{AccessToken: "a", RefreshToken: "r"}}, nil
}

type stubChatService struct {
	services.ChatService
	userID        string
	limit, offset int
}

func (s *stubChatService) Handle(_ context.Context, userID, message string) (*models.ChatMessage, error) {
	s.userID = userID
	return &models.ChatMessage{Role: models.MessageRoleAssistant, Content: "Halo, " + message}, nil
}

func (s *stubChatService) History(_ context.Context, userID string, limit, offset int) (*models.ChatHistory, error) {
	s.userID, s.limit, s.offset = userID, limit, offset
	return &models.ChatHistory{Messages: []models.ChatMessage{}, Total: 0}, nil
}

func (s *stubChatService) ClearHistory(_ context.Context, userID string) error {
	s.userID = userID
	return nil
}

type stubHospitalService struct {
	services.HospitalService
	created int
}

func (s *stubHospitalService) CreateHospital(_ context.Context, req *models.CreateHospitalRequest) (*models.Hospital, error) {
	s.created++
	return &models.Hospital{ID: primitive.NewObjectID(), Name: req.Name}, nil
}

func (s *stubHospitalService) GetHospitalByID(_ context.Context, _ primitive.ObjectID) (*models.Hospital, error) {
	return nil, services.ErrHospitalNotFound
}

type testServer struct {
	*Server
	otp       *stubOTPService
	chat      *stubChatService
	hospitals *stubHospitalService
	db        *MockDBService
	handler   http.Handler
}

func newTestServer(requireAuth bool) *testServer {
	ts := &testServer{
		otp:       &stubOTPService{},
		chat:      &stubChatService{},
		hospitals: &stubHospitalService{},
		db:        &MockDBService{},
	}
	ts.Server = &Server{
		cfg: &config.Config{
			AllowedOrigins:  []string{"http://localhost:3000"},
			ChatRequireAuth: requireAuth,
		},
		db:              ts.db,
		tokens:          services.NewTokenService("access", "refresh", time.Minute, time.Hour),
		otpService:      ts.otp,
		chatService:     ts.chat,
		hospitalService: ts.hospitals,
		apiLimiter:      middlewares.NewRateLimiter(1000, 1000),
		authLimiter:     middlewares.NewWindowLimiter(1000, time.Minute),
	}
	ts.handler = ts.RegisterRoutes()
	return ts
}

func (ts *testServer) token(t *testing.T, role models.Role) (string, string) {
	t.Helper()
	user := &models.User{ID: primitive.NewObjectID(), Email: "u@example.com", Role: role}
	pair, err := ts.tokens.GenerateTokenPair(user)
	require.NoError(t, err)
	return pair.AccessToken, user.ID.Hex()
}

func (ts *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHealthRoute(t *testing.T) {
	ts := newTestServer(true)

	rr := ts.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	data := decodeEnvelope(t, rr)["data"].(map[string]interface{})
	assert.Equal(t, "disabled", data["doctors"].(map[string]interface{})["message"])

	ts.db.down = true
	rr = ts.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(true)
	ts.do(http.MethodGet, "/health", "", "")

	rr := ts.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}

func TestOTPRoutes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"sent", nil, http.StatusOK},
		{"not registered", services.ErrNotRegistered, http.StatusNotFound},
		{"rate limited", services.ErrRateLimited, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(true)
			ts.otp.requestErr = tt.err

			rr := ts.do(http.MethodPost, "/api/auth/otp/request", `{"phone_number":"08123456789"}`, "")
			assert.Equal(t, tt.status, rr.Code)
			if tt.err == nil {
				data := decodeEnvelope(t, rr)["data"].(map[string]interface{})
				assert.EqualValues(t, 300, data["expires_in"])
			}
		})
	}

	t.Run("verify validates the code", func(t *testing.T) {
		ts := newTestServer(true)

		rr := ts.do(http.MethodPost, "/api/auth/otp/verify", `{"phone_number":"08123456789","code":"12ab"}`, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeEnvelope(t, rr)["errors"], "code")

		rr = ts.do(http.MethodPost, "/api/auth/otp/verify", `{"phone_number":"08123456789","code":"123456"}`, "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "08123456789", ts.otp.verified)
		data := decodeEnvelope(t, rr)["data"].(map[string]interface{})
		assert.Equal(t, "a", data["access_token"])
	})
}

func TestChatRoutes(t *testing.T) {
	t.Run("authentication required", func(t *testing.T) {
		ts := newTestServer(true)

		rr := ts.do(http.MethodPost, "/api/chatbot/message", `{"message":"halo"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		token, userID := ts.token(t, models.RoleUser)
		rr = ts.do(http.MethodPost, "/api/chatbot/message", `{"message":"halo"}`, token)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, userID, ts.chat.userID)

		rr = ts.do(http.MethodPost, "/api/chatbot/message", `{"message":""}`, token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("history paging comes from the query", func(t *testing.T) {
		ts := newTestServer(true)
		token, _ := ts.token(t, models.RoleUser)

		rr := ts.do(http.MethodGet, "/api/chatbot/history?limit=20&offset=5", "", token)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 20, ts.chat.limit)
		assert.Equal(t, 5, ts.chat.offset)

		rr = ts.do(http.MethodGet, "/api/chatbot/history", "", token)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, services.DefaultHistoryLimit, ts.chat.limit)
	})

	t.Run("guest chat when allowed", func(t *testing.T) {
		ts := newTestServer(false)
		ts.chat.userID = "unset"

		rr := ts.do(http.MethodPost, "/api/chatbot/message", `{"message":"halo"}`, "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, ts.chat.userID)

		rr = ts.do(http.MethodDelete, "/api/chatbot/history", "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestHospitalRoutes(t *testing.T) {
	ts := newTestServer(true)
	userToken, _ := ts.token(t, models.RoleUser)
	adminToken, _ := ts.token(t, models.RoleAdmin)
	body := `{"name":"Bethsaida Serang","description":"Rumah sakit umum di Serang.","phone":"0254-111","address":"Jl. Raya Cilegon No. 1, Serang","latitude":-6.1,"longitude":106.1,"email":"serang@bethsaida.test"}`

	rr := ts.do(http.MethodPost, "/api/hospitals", body, userToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(http.MethodPost, "/api/hospitals", body, adminToken)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1, ts.hospitals.created)

	rr = ts.do(http.MethodGet, "/api/hospitals/not-an-id", "", userToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodGet, "/api/hospitals/"+primitive.NewObjectID().Hex(), "", userToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCorsPreflight(t *testing.T) {
	ts := newTestServer(true)

	req := httptest.NewRequest(http.MethodOptions, "/api/chatbot/message", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}
