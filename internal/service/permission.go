package service

import (
	"strings"

	"github.com/edulive/classroom-api/internal/models"
)

// Roles understood by the permission validator. The upstream auth service
// guarantees at most one of them per token.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleLearner = "learner"
)

// Action is a session operation subject to permission checks.
type Action string

const (
	ActionStart Action = "start"
	ActionJoin  Action = "join"
	ActionEnd   Action = "end"
)

// Actor is the authenticated caller, threaded explicitly into every
// operation. There is no ambient request identity anywhere below the
// handlers.
type Actor struct {
	ID   uint
	Role string
}

// CanPerform computes whether the actor may perform the action on the
// session. Pure function over already-loaded data: admins may do anything,
// the owning teacher may start/join/end their own session, and a learner may
// only join, and only with a live (non-cancelled) enrollment. Every other
// combination is denied.
func CanPerform(actor Actor, action Action, session models.Session, enrollments []models.Enrollment) bool {
	switch strings.ToLower(strings.TrimSpace(actor.Role)) {
	case RoleAdmin:
		return action == ActionStart || action == ActionJoin || action == ActionEnd
	case RoleTeacher:
		if actor.ID != session.TeacherID {
			return false
		}
		return action == ActionStart || action == ActionJoin || action == ActionEnd
	case RoleLearner:
		if action != ActionJoin {
			return false
		}
		for _, enrollment := range enrollments {
			if enrollment.LearnerID == actor.ID &&
				enrollment.SessionID == session.ID &&
				enrollment.AttendanceStatus != models.AttendanceCancelled {
				return true
			}
		}
		return false
	default:
		return false
	}
}
