package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/edulive/classroom-api/internal/models"
	"github.com/edulive/classroom-api/internal/observability"
	"github.com/edulive/classroom-api/internal/repository"
)

// AuditSink records access decisions without ever blocking or failing the
// action that produced them. Entries flow through a bounded buffer to a
// single writer goroutine; when the buffer is full the entry is dropped and
// counted.
type AuditSink interface {
	Record(entry models.AuditEntry)
	Start(ctx context.Context)
}

type auditSink struct {
	repo    repository.AuditRepository
	nats    *nats.Conn
	subject string
	entries chan models.AuditEntry
	logger  zerolog.Logger
}

// NewAuditSink constructs the asynchronous audit sink. The NATS connection is
// optional; with nil only the database append happens.
func NewAuditSink(repo repository.AuditRepository, natsConn *nats.Conn, subject string, bufferSize int, logger zerolog.Logger) AuditSink {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	return &auditSink{
		repo:    repo,
		nats:    natsConn,
		subject: subject,
		entries: make(chan models.AuditEntry, bufferSize),
		logger:  logger.With().Str("component", "audit_sink").Logger(),
	}
}

// Record enqueues the entry. Never blocks: a full buffer drops the entry.
func (s *auditSink) Record(entry models.AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	select {
	case s.entries <- entry:
	default:
		observability.AuditDropped().Inc()
		s.logger.Warn().Str("action", entry.Action).Uint("session_id", entry.SessionID).Msg("audit buffer full, entry dropped")
	}
}

// Start launches the writer goroutine. It drains until ctx is cancelled.
func (s *auditSink) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				s.drain()
				return
			case entry := <-s.entries:
				s.write(ctx, entry)
			}
		}
	}()
}

func (s *auditSink) drain() {
	for {
		select {
		case entry := <-s.entries:
			s.write(context.Background(), entry)
		default:
			return
		}
	}
}

func (s *auditSink) write(ctx context.Context, entry models.AuditEntry) {
	if err := s.repo.Append(ctx, &entry); err != nil {
		s.logger.Warn().Err(err).Msg("failed to append audit entry")
	}

	if s.nats == nil || s.subject == "" {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode audit entry")
		return
	}

	if err := s.nats.Publish(s.subject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish audit entry")
	}
}
