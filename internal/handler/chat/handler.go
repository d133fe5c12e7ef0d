package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ourhouse/backend/internal/model/chat"
	"github.com/ourhouse/backend/internal/model/persona"
	chatService "github.com/ourhouse/backend/internal/service/chat"
	"github.com/ourhouse/backend/internal/service/dialogue"
	"github.com/ourhouse/backend/pkg/logging"
	"github.com/ourhouse/backend/pkg/utils"
)

// Handler 对话服务的HTTP处理器
type Handler struct {
	dialogueSvc *dialogue.Service
	logger      logrus.FieldLogger
}

// New 创建对话处理器
func New(dialogueSvc *dialogue.Service, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		dialogueSvc: dialogueSvc,
		logger:      logger,
	}
}

// RegisterRoutes 注册对话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/startConversation", h.handleStartConversation)
	r.Post("/startSingleConversation", h.handleStartSingleConversation)
	r.Post("/continueConversation", h.handleContinueConversation)
	r.Get("/conversations/{conversationID}/messages", h.handleTranscript)
}

type messageView struct {
	Speaker string    `json:"speaker"`
	Role    chat.Role `json:"role"`
	Content string    `json:"content"`
}

func toViews(messages []chat.Message) []messageView {
	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, messageView{Speaker: m.Speaker, Role: m.Role, Content: m.Content})
	}
	return views
}

// handleStartConversation 创建两个角色之间的会话
func (h *Handler) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		GPT1ID string `json:"gpt1Id"`
		GPT2ID string `json:"gpt2Id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.GPT1ID == "" || payload.GPT2ID == "" {
		utils.RespondError(w, http.StatusBadRequest, "gpt1Id and gpt2Id are required")
		return
	}

	conv, err := h.dialogueSvc.StartDual(r.Context(), payload.GPT1ID, payload.GPT2ID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"conversationId": conv.ID})
}

// handleStartSingleConversation 创建用户与单个角色的会话
func (h *Handler) handleStartSingleConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		GPTID string `json:"gptId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.GPTID == "" {
		utils.RespondError(w, http.StatusBadRequest, "gptId is required")
		return
	}

	conv, err := h.dialogueSvc.StartSingle(r.Context(), payload.GPTID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"conversationId": conv.ID})
}

// handleContinueConversation 推进一轮对话
func (h *Handler) handleContinueConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ConversationID string  `json:"conversationId"`
		UserMessage    *string `json:"userMessage"`
		SpeakerID      string  `json:"speakerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ConversationID == "" || payload.SpeakerID == "" {
		utils.RespondError(w, http.StatusBadRequest, "conversationId and speakerId are required")
		return
	}

	messages, err := h.dialogueSvc.Continue(r.Context(), payload.ConversationID, payload.UserMessage, payload.SpeakerID)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"conversation_id": payload.ConversationID,
			"speaker":         payload.SpeakerID,
		}).Warn("continue conversation failed")
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": toViews(messages)})
}

// handleTranscript 返回会话的完整记录
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.dialogueSvc.Transcript(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": toViews(messages)})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrConversationMissing):
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, persona.ErrUnknownPersona),
		errors.Is(err, chatService.ErrParticipantRequired),
		errors.Is(err, dialogue.ErrSameParticipant),
		errors.Is(err, dialogue.ErrOperatorNotAgent),
		errors.Is(err, dialogue.ErrSpeakerNotParticipant),
		errors.Is(err, dialogue.ErrMessageRequired),
		errors.Is(err, dialogue.ErrUnexpectedMessage):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dialogue.ErrGeneration):
		utils.RespondError(w, http.StatusBadGateway, "failed to generate reply")
	default:
		h.logger.WithError(err).Error("dialogue request failed")
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
