package fortune

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	fortuneService "github.com/ourhouse/backend/internal/service/fortune"
	"github.com/ourhouse/backend/pkg/logging"
	"github.com/ourhouse/backend/pkg/utils"
)

// Handler 每日运势处理器
type Handler struct {
	svc    *fortuneService.Service
	logger logrus.FieldLogger
}

// New 创建运势处理器
func New(svc *fortuneService.Service, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes 注册运势路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/dailyluck", h.handleDailyLuck)
}

func (h *Handler) handleDailyLuck(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fortune, err := h.svc.Tell(r.Context(), payload.Name)
	switch {
	case errors.Is(err, fortuneService.ErrNameRequired):
		utils.RespondError(w, http.StatusBadRequest, "이름을 입력해주세요.")
	case errors.Is(err, fortuneService.ErrUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, "fortune service unavailable")
	case err != nil:
		h.logger.WithError(err).Warn("daily luck failed")
		utils.RespondError(w, http.StatusBadGateway, "failed to tell fortune")
	default:
		utils.RespondJSON(w, http.StatusOK, map[string]string{"fortune": fortune})
	}
}
