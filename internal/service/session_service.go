package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/edulive/classroom-api/internal/dto"
	"github.com/edulive/classroom-api/internal/models"
	"github.com/edulive/classroom-api/internal/observability"
	"github.com/edulive/classroom-api/internal/repository"
	"github.com/edulive/classroom-api/pkg/meeting"
)

// Sentinel errors surfaced to handlers. Storage and provider details never
// cross this boundary.
var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrClassroomNotFound      = errors.New("classroom not found")
	ErrEnrollmentNotFound     = errors.New("enrollment not found")
	ErrForbidden              = errors.New("action not permitted")
	ErrInvalidStateTransition = errors.New("invalid session state transition")
	ErrTooEarly               = errors.New("join window not yet open")
	ErrInvalidSchedule        = errors.New("invalid schedule")
	ErrMeetingNotStarted      = errors.New("meeting has not been started")
	ErrProviderUnavailable    = errors.New("no meeting provider available")
)

// MeetingGateway abstracts the provider failover chain.
type MeetingGateway interface {
	CreateRoom(ctx context.Context, spec meeting.RoomSpec) (meeting.Room, error)
	EndRoom(ctx context.Context, roomID string) error
}

// SessionService drives the session lifecycle: scheduled -> live ->
// completed, with cancelled as the only other terminal state.
type SessionService interface {
	Schedule(ctx context.Context, payload dto.ScheduleSessionRequest) (dto.SessionResponse, error)
	Get(ctx context.Context, id uint) (dto.SessionResponse, error)
	Start(ctx context.Context, actor Actor, sessionID uint) (dto.MeetingDescriptor, error)
	Join(ctx context.Context, actor Actor, sessionID uint) (dto.MeetingDescriptor, error)
	Leave(ctx context.Context, actor Actor, sessionID uint) error
	End(ctx context.Context, actor Actor, sessionID uint) error
	Cancel(ctx context.Context, actor Actor, sessionID uint) error
}

type sessionService struct {
	sessions    repository.SessionRepository
	enrollments repository.EnrollmentRepository
	classrooms  repository.ClassroomRepository
	gateway     MeetingGateway
	audit       AuditSink
	redis       *redis.Client
	cacheTTL    time.Duration
	joinLead    time.Duration
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSessionService builds the session state machine.
func NewSessionService(
	sessions repository.SessionRepository,
	enrollments repository.EnrollmentRepository,
	classrooms repository.ClassroomRepository,
	gateway MeetingGateway,
	audit AuditSink,
	redisClient *redis.Client,
	joinLead, cacheTTL time.Duration,
	validate *validator.Validate,
	logger zerolog.Logger,
) SessionService {
	if joinLead <= 0 {
		joinLead = 15 * time.Minute
	}

	return &sessionService{
		sessions:    sessions,
		enrollments: enrollments,
		classrooms:  classrooms,
		gateway:     gateway,
		audit:       audit,
		redis:       redisClient,
		cacheTTL:    cacheTTL,
		joinLead:    joinLead,
		validator:   validate,
		logger:      logger.With().Str("component", "session_service").Logger(),
		tracer:      otel.Tracer("github.com/edulive/classroom-api/internal/service/session"),
		now:         time.Now,
	}
}

// Schedule creates a session occurrence for a classroom. Called by the
// scheduling service, admin-gated at the route level.
func (s *sessionService) Schedule(ctx context.Context, payload dto.ScheduleSessionRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	scheduledAt, err := time.Parse(time.RFC3339, payload.ScheduledAt)
	if err != nil {
		return dto.SessionResponse{}, fmt.Errorf("%w: scheduled_at must be RFC3339", ErrInvalidSchedule)
	}

	if !scheduledAt.After(s.now()) {
		return dto.SessionResponse{}, fmt.Errorf("%w: scheduled time must be in the future", ErrInvalidSchedule)
	}

	classroom, err := s.classrooms.GetByID(ctx, payload.ClassroomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrClassroomNotFound
		}
		return dto.SessionResponse{}, err
	}

	session := models.Session{
		ClassroomID:     classroom.ID,
		TeacherID:       classroom.TeacherID,
		CategoryID:      classroom.CategoryID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: payload.DurationMinutes,
		State:           models.SessionStateScheduled,
		MaxStudents:     classroom.MaxStudents,
	}

	if err := s.sessions.Create(ctx, &session); err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().Uint("session_id", session.ID).Uint("classroom_id", classroom.ID).Msg("session scheduled")

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Get(ctx context.Context, id uint) (dto.SessionResponse, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	return dto.NewSessionResponse(session), nil
}

// Start opens the meeting room and transitions the session to live. The
// room creation is idempotent: a session that already carries a meeting URL
// never reaches the provider again.
func (s *sessionService) Start(ctx context.Context, actor Actor, sessionID uint) (dto.MeetingDescriptor, error) {
	ctx, span := s.tracer.Start(ctx, "session.start", trace.WithAttributes(
		attribute.Int64("session.id", int64(sessionID)),
		attribute.String("actor.role", actor.Role),
	))
	defer span.End()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return dto.MeetingDescriptor{}, err
	}

	if !CanPerform(actor, ActionStart, session, nil) {
		s.recordAudit(actor, ActionStart, sessionID, "denied", "role check failed")
		return dto.MeetingDescriptor{}, ErrForbidden
	}

	if session.State.Terminal() {
		s.recordAudit(actor, ActionStart, sessionID, "denied", "session already "+string(session.State))
		return dto.MeetingDescriptor{}, ErrInvalidStateTransition
	}

	if s.now().Before(session.ScheduledAt.Add(-s.joinLead)) {
		s.recordAudit(actor, ActionStart, sessionID, "denied", "join window not open")
		return dto.MeetingDescriptor{}, ErrTooEarly
	}

	roomCreated := false
	if !session.HasMeeting() {
		room, err := s.gateway.CreateRoom(ctx, meeting.RoomSpec{
			Name:     meeting.RoomName(session.ID),
			Capacity: session.MaxStudents + 2,
			ExpiresAt: session.ScheduledAt.
				Add(time.Duration(session.DurationMinutes) * time.Minute).
				Add(time.Hour),
		})
		if err != nil {
			span.RecordError(err)
			s.recordAudit(actor, ActionStart, sessionID, "provider_unavailable", err.Error())
			observability.SessionTransitions().WithLabelValues(string(ActionStart), "provider_unavailable").Inc()
			return dto.MeetingDescriptor{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}

		session.MeetingURL = room.URL
		session.MeetingID = room.ID
		roomCreated = true
	}

	if session.State == models.SessionStateScheduled {
		session.State = models.SessionStateLive
		session.UpdatedAt = s.now().UTC()

		if err := s.sessions.UpdateStateCAS(ctx, &session); err != nil {
			if !errors.Is(err, repository.ErrVersionConflict) {
				return dto.MeetingDescriptor{}, err
			}

			winner, err := s.resolveStartConflict(ctx, actor, sessionID, session, roomCreated)
			if err != nil {
				return dto.MeetingDescriptor{}, err
			}
			session = winner
		} else {
			s.logger.Info().Uint("session_id", session.ID).Str("meeting_id", session.MeetingID).Msg("session started")
		}
	}

	s.recordAudit(actor, ActionStart, sessionID, "allowed", "")
	observability.SessionTransitions().WithLabelValues(string(ActionStart), "ok").Inc()

	return s.buildDescriptor(ctx, session), nil
}

// resolveStartConflict handles a start that lost the compare-and-swap race.
// First writer wins: the loser observes the committed row, discards any room
// it provisioned in vain, and returns the winner's meeting.
func (s *sessionService) resolveStartConflict(ctx context.Context, actor Actor, sessionID uint, attempted models.Session, roomCreated bool) (models.Session, error) {
	committed, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return models.Session{}, err
	}

	if committed.State != models.SessionStateLive || !committed.HasMeeting() {
		s.recordAudit(actor, ActionStart, sessionID, "denied", "session already "+string(committed.State))
		return models.Session{}, ErrInvalidStateTransition
	}

	if roomCreated && attempted.MeetingID != committed.MeetingID {
		if err := s.gateway.EndRoom(ctx, attempted.MeetingID); err != nil {
			s.logger.Warn().Err(err).Str("meeting_id", attempted.MeetingID).Msg("failed to discard orphan room")
		}
	}

	return committed, nil
}

// Join hands the meeting descriptor to an authorized actor and, for
// learners, records first attendance.
func (s *sessionService) Join(ctx context.Context, actor Actor, sessionID uint) (dto.MeetingDescriptor, error) {
	ctx, span := s.tracer.Start(ctx, "session.join", trace.WithAttributes(
		attribute.Int64("session.id", int64(sessionID)),
		attribute.String("actor.role", actor.Role),
	))
	defer span.End()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return dto.MeetingDescriptor{}, err
	}

	enrollments, err := s.enrollments.ListBySession(ctx, sessionID)
	if err != nil {
		return dto.MeetingDescriptor{}, err
	}

	if !CanPerform(actor, ActionJoin, session, enrollments) {
		s.recordAudit(actor, ActionJoin, sessionID, "denied", "not enrolled or wrong role")
		return dto.MeetingDescriptor{}, ErrForbidden
	}

	if !session.HasMeeting() {
		s.recordAudit(actor, ActionJoin, sessionID, "denied", "meeting not started")
		return dto.MeetingDescriptor{}, ErrMeetingNotStarted
	}

	if session.State != models.SessionStateLive {
		s.recordAudit(actor, ActionJoin, sessionID, "denied", "session "+string(session.State))
		return dto.MeetingDescriptor{}, ErrInvalidStateTransition
	}

	if actor.Role == RoleLearner {
		firstJoin, err := s.enrollments.MarkAttended(ctx, sessionID, actor.ID, s.now().UTC())
		if err != nil {
			span.RecordError(err)
			return dto.MeetingDescriptor{}, err
		}
		if firstJoin {
			s.logger.Info().Uint("session_id", sessionID).Uint("learner_id", actor.ID).Msg("learner attendance recorded")
		} else {
			// The conditional update also matches zero rows when the end
			// sweep committed after our state check and moved the learner
			// to absent. A repeat join stays attended; anything else means
			// the session closed under us and the join must be rejected.
			enrollment, err := s.enrollments.GetBySessionAndLearner(ctx, sessionID, actor.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return dto.MeetingDescriptor{}, ErrEnrollmentNotFound
				}
				return dto.MeetingDescriptor{}, err
			}
			if enrollment.AttendanceStatus != models.AttendanceAttended {
				s.recordAudit(actor, ActionJoin, sessionID, "denied", "session no longer live")
				return dto.MeetingDescriptor{}, ErrInvalidStateTransition
			}
		}
	}

	s.recordAudit(actor, ActionJoin, sessionID, "allowed", "")
	observability.SessionTransitions().WithLabelValues(string(ActionJoin), "ok").Inc()

	return s.buildDescriptor(ctx, session), nil
}

// Leave stamps the learner's departure time. Attendance status is untouched
// and repeated calls are no-ops.
func (s *sessionService) Leave(ctx context.Context, actor Actor, sessionID uint) error {
	if actor.Role != RoleLearner {
		return ErrForbidden
	}

	if _, err := s.loadSession(ctx, sessionID); err != nil {
		return err
	}

	if _, err := s.enrollments.GetBySessionAndLearner(ctx, sessionID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentNotFound
		}
		return err
	}

	return s.enrollments.MarkLeft(ctx, sessionID, actor.ID, s.now().UTC())
}

// End completes a live session and sweeps everyone still registered to
// absent in the same transaction. Remote room teardown is best-effort: a
// stuck room never reopens a finished class.
func (s *sessionService) End(ctx context.Context, actor Actor, sessionID uint) error {
	ctx, span := s.tracer.Start(ctx, "session.end", trace.WithAttributes(
		attribute.Int64("session.id", int64(sessionID)),
		attribute.String("actor.role", actor.Role),
	))
	defer span.End()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if !CanPerform(actor, ActionEnd, session, nil) {
		s.recordAudit(actor, ActionEnd, sessionID, "denied", "role check failed")
		return ErrForbidden
	}

	if session.State != models.SessionStateLive {
		s.recordAudit(actor, ActionEnd, sessionID, "denied", "session "+string(session.State))
		return ErrInvalidStateTransition
	}

	meetingID := session.MeetingID
	session.State = models.SessionStateCompleted
	session.UpdatedAt = s.now().UTC()

	if err := s.sessions.CompleteWithSweep(ctx, &session); err != nil {
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}

		committed, err := s.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if committed.State != models.SessionStateCompleted {
			s.recordAudit(actor, ActionEnd, sessionID, "denied", "session "+string(committed.State))
			return ErrInvalidStateTransition
		}
		// Another caller completed the session first; the outcome holds.
	}

	if meetingID != "" {
		if err := s.gateway.EndRoom(ctx, meetingID); err != nil {
			span.RecordError(err)
			s.logger.Warn().Err(err).Uint("session_id", sessionID).Str("meeting_id", meetingID).Msg("remote room teardown failed")
		}
	}

	s.recordAudit(actor, ActionEnd, sessionID, "allowed", "")
	observability.SessionTransitions().WithLabelValues(string(ActionEnd), "ok").Inc()
	s.logger.Info().Uint("session_id", sessionID).Msg("session completed")

	return nil
}

// Cancel moves a scheduled session to cancelled and cancels its registered
// enrollments. Admin-only; the route group enforces the role, the ownership
// rule needs no check because cancellation has none.
func (s *sessionService) Cancel(ctx context.Context, actor Actor, sessionID uint) error {
	if actor.Role != RoleAdmin {
		return ErrForbidden
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.State != models.SessionStateScheduled {
		s.recordAudit(actor, Action("cancel"), sessionID, "denied", "session "+string(session.State))
		return ErrInvalidStateTransition
	}

	session.State = models.SessionStateCancelled
	session.UpdatedAt = s.now().UTC()

	if err := s.sessions.CancelWithSweep(ctx, &session); err != nil {
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}

		committed, err := s.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if committed.State != models.SessionStateCancelled {
			return ErrInvalidStateTransition
		}
	}

	s.recordAudit(actor, Action("cancel"), sessionID, "allowed", "")
	observability.SessionTransitions().WithLabelValues("cancel", "ok").Inc()
	s.logger.Info().Uint("session_id", sessionID).Msg("session cancelled")

	return nil
}

func (s *sessionService) loadSession(ctx context.Context, id uint) (models.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}

	return session, nil
}

// buildDescriptor assembles the meeting descriptor, consulting the redis
// cache for the classroom/teacher projection. Cache loss only costs two
// reads; the session row stays authoritative for url and id.
func (s *sessionService) buildDescriptor(ctx context.Context, session models.Session) dto.MeetingDescriptor {
	descriptor := dto.MeetingDescriptor{
		MeetingURL:      session.MeetingURL,
		MeetingID:       session.MeetingID,
		ScheduledAt:     session.ScheduledAt,
		DurationMinutes: session.DurationMinutes,
	}

	cacheKey := fmt.Sprintf("session:%d:descriptor", session.ID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var hit dto.MeetingDescriptor
			if json.Unmarshal([]byte(cached), &hit) == nil {
				observability.DescriptorCache().WithLabelValues("hit").Inc()
				hit.MeetingURL = descriptor.MeetingURL
				hit.MeetingID = descriptor.MeetingID
				return hit
			}
		}
		observability.DescriptorCache().WithLabelValues("miss").Inc()
	}

	if classroom, err := s.classrooms.GetByID(ctx, session.ClassroomID); err == nil {
		descriptor.ClassroomTitle = classroom.Title
	} else {
		s.logger.Warn().Err(err).Uint("classroom_id", session.ClassroomID).Msg("classroom lookup failed for descriptor")
	}

	if teacher, err := s.classrooms.GetTeacher(ctx, session.TeacherID); err == nil {
		descriptor.TeacherName = teacher.Name
	} else {
		s.logger.Warn().Err(err).Uint("teacher_id", session.TeacherID).Msg("teacher lookup failed for descriptor")
	}

	if s.redis != nil && s.cacheTTL > 0 {
		if payload, err := json.Marshal(descriptor); err == nil {
			if err := s.redis.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache meeting descriptor")
			}
		}
	}

	return descriptor
}

func (s *sessionService) recordAudit(actor Actor, action Action, sessionID uint, outcome, detail string) {
	if s.audit == nil {
		return
	}

	s.audit.Record(models.AuditEntry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    string(action),
		SessionID: sessionID,
		Outcome:   outcome,
		Detail:    detail,
	})
}
