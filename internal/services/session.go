package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"abundance-backend/internal/models"
	"abundance-backend/internal/repository"
)

// Session codes avoid the lookalike characters 0/O/1/I so they survive
// being read aloud in a classroom.
const sessionCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const sessionCodeLength = 6
const sessionCodeMaxAttempts = 10

// ExpiredError marks a session past its deadline; handlers map it to 410.
type ExpiredError struct{ Message string }

func (e *ExpiredError) Error() string { return e.Message }

// InvalidTransitionError marks a state change the session's current status
// does not allow; handlers map it to 409.
type InvalidTransitionError struct{ Message string }

func (e *InvalidTransitionError) Error() string { return e.Message }

type SessionService struct {
	sessionRepo *repository.SessionRepo
	projectRepo *repository.ProjectRepo
	pubsub      *redis.Client

	ttl               time.Duration
	defaultPhaseLimit int
}

func NewSessionService(sessionRepo *repository.SessionRepo, projectRepo *repository.ProjectRepo, pubsub *redis.Client, ttlHours, defaultPhaseLimitSeconds int) *SessionService {
	return &SessionService{
		sessionRepo:       sessionRepo,
		projectRepo:       projectRepo,
		pubsub:            pubsub,
		ttl:               time.Duration(ttlHours) * time.Hour,
		defaultPhaseLimit: defaultPhaseLimitSeconds,
	}
}

func generateSessionCode() (string, error) {
	b := make([]byte, sessionCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session code: %w", err)
	}
	for i := range b {
		b[i] = sessionCodeCharset[int(b[i])%len(sessionCodeCharset)]
	}
	return string(b), nil
}

// phaseLimits splits the project's planned duration evenly across the
// phases; projects without a duration get the configured default per phase.
func (s *SessionService) phaseLimits(project *models.Project) map[string]int {
	perPhase := s.defaultPhaseLimit
	if project.DurationMin > 0 {
		perPhase = project.DurationMin * 60 / len(models.Phases)
	}

	limits := make(map[string]int, len(models.Phases))
	for _, phase := range models.Phases {
		limits[phase] = perPhase
	}
	return limits
}

func (s *SessionService) Create(ctx context.Context, userID uuid.UUID, req models.CreateSessionRequest) (*models.Session, error) {
	project, err := s.projectRepo.GetByID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Project not found"}
		}
		return nil, err
	}
	if project.OwnerID != userID {
		return nil, &ForbiddenError{Message: "You do not own this project"}
	}
	if project.Status != models.ProjectComplete {
		return nil, &ConflictError{Message: "Project content is not ready yet"}
	}

	var code string
	for attempt := 0; ; attempt++ {
		code, err = generateSessionCode()
		if err != nil {
			return nil, err
		}
		exists, err := s.sessionRepo.CodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		if attempt+1 >= sessionCodeMaxAttempts {
			return nil, fmt.Errorf("could not find a free session code after %d attempts", sessionCodeMaxAttempts)
		}
	}

	now := time.Now()
	session := &models.Session{
		ProjectID:       project.ID,
		SessionCode:     code,
		CurrentPhase:    models.Phases[0],
		Status:          models.SessionActive,
		PhaseStartTime:  now,
		PhaseTimeLimits: s.phaseLimits(project),
		ExpiresAt:       now.Add(s.ttl),
	}

	if err := s.sessionRepo.Create(ctx, session, req.ParticipantIDs); err != nil {
		return nil, err
	}
	return session, nil
}

// Get loads a session by id, flipping it to expired first when its deadline
// passed. Expired sessions are still returned alongside the error so the
// handler can include the final state in the 410 body.
func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Session not found"}
		}
		return nil, err
	}
	return s.afterLoad(ctx, session)
}

func (s *SessionService) GetByCode(ctx context.Context, code string) (*models.Session, error) {
	session, err := s.sessionRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Session not found"}
		}
		return nil, err
	}
	return s.afterLoad(ctx, session)
}

func (s *SessionService) afterLoad(ctx context.Context, session *models.Session) (*models.Session, error) {
	s.sessionRepo.TouchAccess(ctx, session.ID)

	if session.Expire(time.Now()) {
		if err := s.sessionRepo.SetStatus(ctx, session.ID, models.SessionExpired); err != nil {
			return nil, err
		}
		s.publish(ctx, session.ID, "session.expired", models.StatusChangedEvent{
			SessionID: session.ID,
			Status:    session.Status,
		})
	}
	if session.Status == models.SessionExpired {
		return session, &ExpiredError{Message: "Session has expired"}
	}
	return session, nil
}

// GetDetail returns the session with its project, roster and phase audit
// log. The ExpiredError contract matches Get.
func (s *SessionService) GetDetail(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		var expErr *ExpiredError
		if !errors.As(err, &expErr) {
			return nil, err
		}
	}

	project, perr := s.projectRepo.GetByID(ctx, session.ProjectID)
	if perr != nil {
		return nil, perr
	}
	participants, perr := s.projectRepo.ListParticipants(ctx, session.ProjectID)
	if perr != nil {
		return nil, perr
	}
	history, perr := s.sessionRepo.ListPhaseHistory(ctx, id)
	if perr != nil {
		return nil, perr
	}

	detail := &models.SessionDetail{
		Session:      session,
		Project:      project,
		Participants: participants,
		PhaseHistory: history,
	}
	return detail, err
}

func (s *SessionService) ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]models.Session, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Project not found"}
		}
		return nil, err
	}
	if project.OwnerID != userID {
		return nil, &ForbiddenError{Message: "You do not own this project"}
	}
	return s.sessionRepo.ListByProject(ctx, projectID)
}

func (s *SessionService) Progress(ctx context.Context, id uuid.UUID, req models.ProgressPhaseRequest) (*models.Session, error) {
	session, completed, err := s.sessionRepo.ProgressPhase(ctx, id, req.NextPhase)
	if err != nil {
		return nil, s.mapTransitionErr(session, err)
	}

	s.publish(ctx, id, "session.phase_changed", models.PhaseChangedEvent{
		SessionID:    id,
		CurrentPhase: session.CurrentPhase,
		Status:       session.Status,
		Completed:    completed,
	})
	return session, nil
}

func (s *SessionService) Pause(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.sessionRepo.Pause(ctx, id)
	if err != nil {
		return nil, s.mapTransitionErr(session, err)
	}

	s.publish(ctx, id, "session.status_changed", models.StatusChangedEvent{
		SessionID: id,
		Status:    session.Status,
	})
	return session, nil
}

func (s *SessionService) Resume(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := s.sessionRepo.Resume(ctx, id)
	if err != nil {
		return nil, s.mapTransitionErr(session, err)
	}

	s.publish(ctx, id, "session.status_changed", models.StatusChangedEvent{
		SessionID: id,
		Status:    session.Status,
	})
	return session, nil
}

func (s *SessionService) AppendConversation(ctx context.Context, id uuid.UUID, req models.AddConversationRequest) (*models.Session, error) {
	fieldErrors := make(map[string]string)
	if req.Content == "" {
		fieldErrors["content"] = "Content is required"
	}
	if req.Role == "" {
		fieldErrors["role"] = "Role is required"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	entry := models.ConversationEntry{
		Role:          req.Role,
		Content:       req.Content,
		ParticipantID: req.ParticipantID,
		RequestID:     req.RequestID,
	}

	session, added, err := s.sessionRepo.AppendConversation(ctx, id, entry)
	if err != nil {
		return nil, s.mapTransitionErr(session, err)
	}

	if added {
		s.publish(ctx, id, "session.conversation_appended", models.ConversationAppendedEvent{
			SessionID: id,
			Entry:     session.ConversationHistory[len(session.ConversationHistory)-1],
		})
	}
	return session, nil
}

// CleanupExpired deletes all sessions past their deadline and reports how
// many went.
func (s *SessionService) CleanupExpired(ctx context.Context) (int, error) {
	return s.sessionRepo.SweepExpired(ctx)
}

func (s *SessionService) mapTransitionErr(session *models.Session, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return &NotFoundError{Message: "Session not found"}
	case errors.Is(err, models.ErrSessionTerminal):
		if session != nil && session.Status == models.SessionExpired {
			return &ExpiredError{Message: "Session has expired"}
		}
		return &InvalidTransitionError{Message: "Session is already completed"}
	case errors.Is(err, models.ErrSessionNotActive):
		return &InvalidTransitionError{Message: "Session is not active"}
	case errors.Is(err, models.ErrSessionNotPaused):
		return &InvalidTransitionError{Message: "Session is not paused"}
	default:
		return err
	}
}

func (s *SessionService) publish(ctx context.Context, sessionID uuid.UUID, msgType string, payload interface{}) {
	data, err := json.Marshal(models.WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		return
	}
	if err := s.pubsub.Publish(ctx, "session_updates:"+sessionID.String(), data).Err(); err != nil {
		log.Printf("failed to publish %s for session %s: %v", msgType, sessionID, err)
	}
}
