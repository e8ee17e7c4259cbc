package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"abundance-backend/internal/models"
	"abundance-backend/internal/repository"
)

const projectGenerationQueue = "queue:project-generation"

const assistantSystemPrompt = `You are Abundance, a planning assistant for teachers building group classroom projects.
Your job is to collect, through a short friendly conversation, everything needed to generate a project:
- title: a short name for the project
- topic: the subject matter being taught
- life_skill: the real-world skill the group practices (e.g. collaboration, budgeting, public speaking)
- group_size: how many students work together (2 to 4)
- duration_min: planned length of the classroom session in minutes

Ask ONE question at a time. Keep replies to a couple of sentences. Suggest concrete options when the teacher is unsure.

You MUST reply with a single JSON object and nothing else, in one of two shapes:
{"action": "continue", "message": "<your next question or remark>"}
{"action": "generate_project", "project": {"title": "...", "topic": "...", "life_skill": "...", "group_size": 4, "duration_min": 45}}

Only emit "generate_project" once every field is known. Never invent values the teacher did not confirm.`

type AssistantService struct {
	chatRepo    *repository.ChatRepo
	projectRepo *repository.ProjectRepo
	jobRepo     *repository.JobRepo
	redis       *redis.Client
	model       *genai.GenerativeModel
}

// NewGeminiClient is shared by the assistant and the content generator.
func NewGeminiClient(apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

func NewAssistantService(
	client *genai.Client,
	chatRepo *repository.ChatRepo,
	projectRepo *repository.ProjectRepo,
	jobRepo *repository.JobRepo,
	redisClient *redis.Client,
) *AssistantService {
	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.7)
	model.SetTopP(0.95)

	return &AssistantService{
		chatRepo:    chatRepo,
		projectRepo: projectRepo,
		jobRepo:     jobRepo,
		redis:       redisClient,
		model:       model,
	}
}

// Chat runs one turn of the onboarding conversation. When the assistant
// decides it has every project field, the project row is created in
// "generating" status and a generation job is queued before returning.
func (s *AssistantService) Chat(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.AssistantReply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, &ValidationError{Fields: map[string]string{"message": "Message is required"}}
	}

	chat, err := s.ensureChat(ctx, userID, req.ChatID)
	if err != nil {
		return nil, err
	}

	history, err := s.chatRepo.ListMessages(ctx, chat.ID)
	if err != nil {
		return nil, err
	}

	if err := s.chatRepo.AddMessage(ctx, chat.ID, "user", req.Message); err != nil {
		return nil, err
	}

	prompt := buildAssistantPrompt(history, req.Message)
	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	raw := extractText(resp)
	action, message, draft := parseAssistantReply(raw)

	reply := &models.AssistantReply{
		ChatID:  chat.ID,
		Action:  action,
		Message: message,
	}

	if action == "generate_project" {
		project, err := s.startGeneration(ctx, userID, chat.ID, draft)
		if err != nil {
			return nil, err
		}
		reply.ProjectID = &project.ID
		reply.Message = fmt.Sprintf("Generating \"%s\" now. Content for every seat will be ready shortly.", project.Title)
	}

	if err := s.chatRepo.AddMessage(ctx, chat.ID, "assistant", reply.Message); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *AssistantService) ensureChat(ctx context.Context, userID uuid.UUID, chatID *uuid.UUID) (*models.Chat, error) {
	if chatID == nil {
		return s.chatRepo.Create(ctx, userID)
	}

	chat, err := s.chatRepo.GetByID(ctx, *chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Chat not found"}
		}
		return nil, err
	}
	if chat.OwnerID != userID {
		return nil, &ForbiddenError{Message: "You do not own this chat"}
	}
	return chat, nil
}

func (s *AssistantService) ListMessages(ctx context.Context, userID, chatID uuid.UUID) ([]models.ChatMessage, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Chat not found"}
		}
		return nil, err
	}
	if chat.OwnerID != userID {
		return nil, &ForbiddenError{Message: "You do not own this chat"}
	}
	return s.chatRepo.ListMessages(ctx, chatID)
}

// startGeneration persists the project skeleton, seats the group, records
// the job and pushes it onto the generation queue.
func (s *AssistantService) startGeneration(ctx context.Context, userID, chatID uuid.UUID, draft *models.ProjectDraft) (*models.Project, error) {
	if draft == nil {
		return nil, fmt.Errorf("assistant signalled generation without a project payload")
	}

	fieldErrors := make(map[string]string)
	if draft.Title == "" {
		fieldErrors["title"] = "Title is required"
	}
	if draft.Topic == "" {
		fieldErrors["topic"] = "Topic is required"
	}
	if draft.GroupSize < 2 || draft.GroupSize > 4 {
		fieldErrors["group_size"] = "Group size must be between 2 and 4"
	}
	if draft.DurationMin < 5 {
		fieldErrors["duration_min"] = "Duration must be at least 5 minutes"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	runID := uuid.New()
	project := &models.Project{
		OwnerID:     userID,
		ChatID:      &chatID,
		Title:       draft.Title,
		Topic:       draft.Topic,
		LifeSkill:   draft.LifeSkill,
		GroupSize:   draft.GroupSize,
		DurationMin: draft.DurationMin,
		Status:      models.ProjectGenerating,
		RunID:       &runID,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	teacher := &models.Participant{ProjectID: project.ID, Role: models.RoleTeacher}
	if err := s.projectRepo.CreateParticipant(ctx, teacher); err != nil {
		return nil, err
	}
	for seat := 1; seat <= project.GroupSize; seat++ {
		n := seat
		student := &models.Participant{ProjectID: project.ID, Role: models.RoleStudent, SeatNumber: &n}
		if err := s.projectRepo.CreateParticipant(ctx, student); err != nil {
			return nil, err
		}
	}

	job := &models.Job{
		UserID:      userID,
		Type:        "project-generation",
		ReferenceID: project.ID,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	jobBytes, _ := json.Marshal(job)
	if err := s.redis.LPush(ctx, projectGenerationQueue, string(jobBytes)).Err(); err != nil {
		return nil, fmt.Errorf("failed to enqueue generation job: %w", err)
	}

	return project, nil
}

func buildAssistantPrompt(history []models.ChatMessage, latest string) string {
	var b strings.Builder
	b.WriteString(assistantSystemPrompt)
	b.WriteString("\n\nConversation so far:\n")
	for _, m := range history {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(latest)
	b.WriteString("\n\nReply with the JSON object only.")
	return b.String()
}

// parseAssistantReply decodes the assistant's JSON turn. Anything that
// fails to parse is treated as a plain "continue" message so a chatty model
// never breaks the conversation.
func parseAssistantReply(raw string) (action, message string, draft *models.ProjectDraft) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed struct {
		Action  string               `json:"action"`
		Message string               `json:"message"`
		Project *models.ProjectDraft `json:"project"`
	}

	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		// Try to extract a JSON object from surrounding prose.
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			json.Unmarshal([]byte(text[start:end+1]), &parsed)
		}
	}

	if parsed.Action == "generate_project" && parsed.Project != nil {
		return "generate_project", parsed.Message, parsed.Project
	}
	if parsed.Message != "" {
		return "continue", parsed.Message, nil
	}
	return "continue", text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
