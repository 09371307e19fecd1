package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edulive/classroom-api/internal/dto"
	"github.com/edulive/classroom-api/internal/handler"
	"github.com/edulive/classroom-api/internal/service"
)

type mockSessionService struct {
	descriptor dto.MeetingDescriptor
	session    dto.SessionResponse
	err        error
	lastActor  service.Actor
	lastID     uint
}

func (m *mockSessionService) Schedule(_ context.Context, payload dto.ScheduleSessionRequest) (dto.SessionResponse, error) {
	if m.err != nil {
		return dto.SessionResponse{}, m.err
	}
	return m.session, nil
}

func (m *mockSessionService) Get(_ context.Context, id uint) (dto.SessionResponse, error) {
	m.lastID = id
	if m.err != nil {
		return dto.SessionResponse{}, m.err
	}
	return m.session, nil
}

func (m *mockSessionService) Start(_ context.Context, actor service.Actor, sessionID uint) (dto.MeetingDescriptor, error) {
	m.lastActor = actor
	m.lastID = sessionID
	if m.err != nil {
		return dto.MeetingDescriptor{}, m.err
	}
	return m.descriptor, nil
}

func (m *mockSessionService) Join(_ context.Context, actor service.Actor, sessionID uint) (dto.MeetingDescriptor, error) {
	m.lastActor = actor
	m.lastID = sessionID
	if m.err != nil {
		return dto.MeetingDescriptor{}, m.err
	}
	return m.descriptor, nil
}

func (m *mockSessionService) Leave(_ context.Context, actor service.Actor, sessionID uint) error {
	m.lastActor = actor
	m.lastID = sessionID
	return m.err
}

func (m *mockSessionService) End(_ context.Context, actor service.Actor, sessionID uint) error {
	m.lastActor = actor
	m.lastID = sessionID
	return m.err
}

func (m *mockSessionService) Cancel(_ context.Context, actor service.Actor, sessionID uint) error {
	m.lastActor = actor
	m.lastID = sessionID
	return m.err
}

func newTestApp(svc service.SessionService, userID uint, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("user_role", role)
		return c.Next()
	})
	handler.NewSessionHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/sessions"))
	return app
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestSessionHandlerStartSuccess(t *testing.T) {
	svc := &mockSessionService{descriptor: dto.MeetingDescriptor{
		MeetingURL:      "https://rooms.test/class-9-abcd",
		MeetingID:       "daily:class-9-abcd",
		ClassroomTitle:  "Algebra Basics",
		TeacherName:     "Dewi Lestari",
		ScheduledAt:     time.Now().UTC(),
		DurationMinutes: 60,
	}}
	app := newTestApp(svc, 7, "teacher")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/9/start", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                  `json:"success"`
		Data    dto.MeetingDescriptor `json:"data"`
		Message string                `json:"message"`
	}
	decodeResponse(t, resp, &body)

	require.True(t, body.Success)
	require.Equal(t, "session started", body.Message)
	require.Equal(t, svc.descriptor.MeetingURL, body.Data.MeetingURL)
	require.Equal(t, service.Actor{ID: 7, Role: "teacher"}, svc.lastActor)
	require.Equal(t, uint(9), svc.lastID)
}

func TestSessionHandlerStartErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrSessionNotFound, fiber.StatusNotFound},
		{"forbidden", service.ErrForbidden, fiber.StatusForbidden},
		{"too early", service.ErrTooEarly, fiber.StatusBadRequest},
		{"bad state", service.ErrInvalidStateTransition, fiber.StatusBadRequest},
		{"provider down", service.ErrProviderUnavailable, fiber.StatusBadGateway},
		{"internal", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(&mockSessionService{err: tc.err}, 7, "teacher")
			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/9/start", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestSessionHandlerStartRejectsLearnerRole(t *testing.T) {
	svc := &mockSessionService{}
	app := newTestApp(svc, 21, "learner")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/9/start", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Zero(t, svc.lastID, "service must not be reached")
}

func TestSessionHandlerJoinNotStarted(t *testing.T) {
	app := newTestApp(&mockSessionService{err: service.ErrMeetingNotStarted}, 21, "learner")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/9/join", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSessionHandlerJoinSuccess(t *testing.T) {
	svc := &mockSessionService{descriptor: dto.MeetingDescriptor{MeetingURL: "https://rooms.test/x"}}
	app := newTestApp(svc, 21, "learner")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/9/join", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionHandlerInvalidIdentifier(t *testing.T) {
	app := newTestApp(&mockSessionService{}, 7, "teacher")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/oops/start", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSessionHandlerEndSuccess(t *testing.T) {
	svc := &mockSessionService{}
	app := newTestApp(svc, 7, "teacher")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/9/end", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "session completed", body.Message)
}

func TestSessionHandlerScheduleRequiresAdmin(t *testing.T) {
	app := newTestApp(&mockSessionService{}, 7, "teacher")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSessionHandlerScheduleCreated(t *testing.T) {
	svc := &mockSessionService{session: dto.SessionResponse{ID: 5, State: "scheduled"}}
	app := newTestApp(svc, 1, "admin")

	payload := `{"classroom_id":1,"scheduled_at":"2026-09-02T10:00:00Z","duration_minutes":60}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestSessionHandlerScheduleInvalidTimestamp(t *testing.T) {
	app := newTestApp(&mockSessionService{err: service.ErrInvalidSchedule}, 1, "admin")

	payload := `{"classroom_id":1,"scheduled_at":"not-a-timestamp","duration_minutes":60}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Contains(t, body.Message, "invalid schedule")
}

func TestSessionHandlerCancelRequiresAdmin(t *testing.T) {
	app := newTestApp(&mockSessionService{}, 7, "teacher")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/9/cancel", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
