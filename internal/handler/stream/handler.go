package stream

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ourhouse/backend/internal/conversation"
	"github.com/ourhouse/backend/internal/model/chat"
	"github.com/ourhouse/backend/internal/model/persona"
	chatService "github.com/ourhouse/backend/internal/service/chat"
	"github.com/ourhouse/backend/internal/service/dialogue"
	"github.com/ourhouse/backend/pkg/logging"
	"github.com/ourhouse/backend/pkg/utils"
)

const (
	defaultTurns = 6
	maxTurns     = 20
)

// Handler plays a two-agent conversation forward and streams each line via Server-Sent Events.
type Handler struct {
	dialogueSvc *dialogue.Service
	logger      logrus.FieldLogger
}

// New creates a new stream handler
func New(dialogueSvc *dialogue.Service, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{dialogueSvc: dialogueSvc, logger: logger}
}

// Event is one streamed payload.
type Event struct {
	ConversationID string `json:"conversationId"`
	Turn           int    `json:"turn"`
	Speaker        string `json:"speaker,omitempty"`
	Content        string `json:"content,omitempty"`
	Error          string `json:"error,omitempty"`
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{conversationID}", h.handleAutoplay)
}

// handleAutoplay advances a dual conversation ?turns=N times (default 6).
func (h *Handler) handleAutoplay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "conversationID")

	turns, err := parseTurns(r.URL.Query().Get("turns"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.dialogueSvc.Conversation(ctx, conversationID)
	if errors.Is(err, chatService.ErrConversationMissing) {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if conv.Mode != chat.ModeDual || hasOperator(conv) {
		utils.RespondError(w, http.StatusBadRequest, "autoplay needs two agents")
		return
	}

	transcript, err := h.dialogueSvc.Transcript(ctx, conversationID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	utils.SetupSSEHeaders(w)

	log := h.logger.WithField("conversation_id", conversationID)
	p1, p2 := conv.Participants[0], conv.Participants[1]
	turn := len(transcript)

	if err := utils.SendSSEEvent(w, flusher, "start", Event{ConversationID: conversationID, Turn: turn}); err != nil {
		return
	}

	for i := 0; i < turns; i++ {
		if ctx.Err() != nil {
			log.Debug("autoplay client went away")
			return
		}

		speaker := conversation.Schedule(p1, p2, turn).Speaker
		messages, err := h.dialogueSvc.Continue(ctx, conversationID, nil, speaker)
		if err != nil {
			log.WithError(err).WithField("speaker", speaker).Warn("autoplay turn failed")
			_ = utils.SendSSEEvent(w, flusher, "error", Event{ConversationID: conversationID, Turn: turn, Error: err.Error()})
			return
		}
		for _, m := range messages {
			if err := utils.SendSSEEvent(w, flusher, "message", Event{
				ConversationID: conversationID,
				Turn:           turn,
				Speaker:        m.Speaker,
				Content:        m.Content,
			}); err != nil {
				return
			}
		}
		turn++
	}

	_ = utils.SendSSEEvent(w, flusher, "end", Event{ConversationID: conversationID, Turn: turn})
	log.WithField("turns", turns).Info("autoplay completed")
}

func parseTurns(raw string) (int, error) {
	if raw == "" {
		return defaultTurns, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxTurns {
		return 0, errors.New("turns must be between 1 and 20")
	}
	return n, nil
}

func hasOperator(conv chat.Conversation) bool {
	return conv.HasParticipant(persona.Operator)
}
