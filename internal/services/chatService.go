package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hospitaldesk/internal/metrics"
	"hospitaldesk/internal/models"
	"hospitaldesk/internal/repositories"
)

const (
	FallbackReply = "Maaf, saya sedang mengalami gangguan. Silakan hubungi customer service kami untuk bantuan lebih lanjut."
	EmptyReply    = "Maaf, saya tidak dapat memberikan respons saat ini."

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

const systemPromptTemplate = `Kamu adalah asisten virtual untuk %s. Tugasmu adalah membantu pengguna mendapatkan informasi tentang rumah sakit dan dokter kami.

Gunakan fungsi yang tersedia untuk mengambil data rumah sakit dan dokter sebelum menjawab. Jangan mengarang data yang tidak ada pada hasilnya.

Jangan pernah menyebutkan atau menjelaskan bagaimana kamu mendapatkan data tersebut, termasuk fungsi, database, atau sistem internal. Jika ditanya tentang hal itu atau hal lain di luar informasi rumah sakit dan dokter, arahkan kembali ke topik rumah sakit dengan sopan.

Jawab pertanyaan dengan ramah, informatif, dan profesional.`

type ChatConfig struct {
	ContextWindow int
	RequireAuth   bool
	Temperature   float64
	MaxTokens     int
	HospitalName  string
}

// ChatService runs the hospital chatbot. Every accepted message gets a
// stored assistant reply, the fallback text included.
type ChatService interface {
	Handle(ctx context.Context, userID, message string) (*models.ChatMessage, error)
	History(ctx context.Context, userID string, limit, offset int) (*models.ChatHistory, error)
	ClearHistory(ctx context.Context, userID string) error
}

type chatService struct {
	chatRepo repositories.ChatRepository
	model    ChatModel
	tools    *toolbox
	cfg      ChatConfig
}

func NewChatService(
	chatRepo repositories.ChatRepository,
	hospitalRepo repositories.HospitalRepository,
	doctorRepo repositories.DoctorRepository,
	model ChatModel,
	cfg ChatConfig,
) ChatService {
	return &chatService{
		chatRepo: chatRepo,
		model:    model,
		tools:    newToolbox(hospitalRepo, doctorRepo),
		cfg:      cfg,
	}
}

// owner resolves the conversation key. Guests share the nil key when
// authentication is not required.
func (s *chatService) owner(userID string) (*primitive.ObjectID, error) {
	if userID == "" {
		if s.cfg.RequireAuth {
			return nil, ErrUnauthenticated
		}
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return &id, nil
}

func (s *chatService) Handle(ctx context.Context, userID, message string) (*models.ChatMessage, error) {
	owner, err := s.owner(userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.chatRepo.Create(ctx, &models.ChatMessage{
		UserID:  owner,
		Role:    models.MessageRoleUser,
		Content: message,
	}); err != nil {
		return nil, err
	}

	reply, outcome, err := s.respond(ctx, owner)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Chatbot turn failed, sending fallback reply")
		reply, outcome = FallbackReply, "fallback"
	}
	metrics.ChatTurnsTotal.WithLabelValues(outcome).Inc()

	return s.chatRepo.Create(ctx, &models.ChatMessage{
		UserID:  owner,
		Role:    models.MessageRoleAssistant,
		Content: reply,
	})
}

// respond produces the assistant text for the latest stored turn. The
// outcome is "direct" or "tool".
func (s *chatService) respond(ctx context.Context, owner *primitive.ObjectID) (string, string, error) {
	recent, err := s.chatRepo.FindRecent(ctx, owner, s.cfg.ContextWindow, 0)
	if err != nil {
		return "", "", err
	}

	messages := make([]llms.MessageContent, 0, len(recent)+1)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(systemPromptTemplate, s.cfg.HospitalName)))
	for i := len(recent) - 1; i >= 0; i-- {
		role := llms.ChatMessageTypeHuman
		if recent[i].Role == models.MessageRoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, recent[i].Content))
	}

	choice, err := s.generate(ctx, "initial", messages, llms.WithTools(s.tools.Definitions()))
	if err != nil {
		return "", "", err
	}

	if len(choice.ToolCalls) == 0 {
		return replyText(choice.Content), "direct", nil
	}

	aiParts := make([]llms.ContentPart, 0, len(choice.ToolCalls)+1)
	if choice.Content != "" {
		aiParts = append(aiParts, llms.TextPart(choice.Content))
	}
	for _, call := range choice.ToolCalls {
		aiParts = append(aiParts, call)
	}
	messages = append(messages, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: aiParts})

	for _, call := range choice.ToolCalls {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{s.runTool(ctx, call)},
		})
	}

	followUp, err := s.generate(ctx, "followup", messages)
	if err != nil {
		return "", "", err
	}
	return replyText(followUp.Content), "tool", nil
}

// runTool never fails; an unknown function becomes an error object the
// model can read.
func (s *chatService) runTool(ctx context.Context, call llms.ToolCall) llms.ToolCallResponse {
	name := ""
	if call.FunctionCall != nil {
		name = call.FunctionCall.Name
	}

	content, err := s.tools.Execute(ctx, call)
	if err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("Tool call rejected")
		content = fmt.Sprintf(`{"error":%q}`, err.Error())
	}

	return llms.ToolCallResponse{ToolCallID: call.ID, Name: name, Content: content}
}

func (s *chatService) generate(ctx context.Context, stage string, messages []llms.MessageContent, extra ...llms.CallOption) (*llms.ContentChoice, error) {
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.LLMRequestDurationSeconds.WithLabelValues(stage, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	opts := append([]llms.CallOption{
		llms.WithTemperature(s.cfg.Temperature),
		llms.WithMaxTokens(s.cfg.MaxTokens),
	}, extra...)

	resp, err := s.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("%w: %s completion: %v", ErrUpstreamUnavailable, stage, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		status = "error"
		return nil, fmt.Errorf("%w: %s completion returned no choices", ErrUpstreamUnavailable, stage)
	}
	return resp.Choices[0], nil
}

func replyText(content string) string {
	if strings.TrimSpace(content) == "" {
		return EmptyReply
	}
	return content
}

func (s *chatService) History(ctx context.Context, userID string, limit, offset int) (*models.ChatHistory, error) {
	owner, err := s.owner(userID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.chatRepo.FindRecent(ctx, owner, limit, offset)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	total, err := s.chatRepo.CountByUser(ctx, owner)
	if err != nil {
		return nil, err
	}

	return &models.ChatHistory{Messages: messages, Total: total}, nil
}

func (s *chatService) ClearHistory(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrUnauthenticated
	}

	deleted, err := s.chatRepo.DeleteByUser(ctx, id)
	if err != nil {
		return err
	}

	log.Info().Str("user_id", userID).Int64("deleted", deleted).Msg("Chat history cleared")
	return nil
}
