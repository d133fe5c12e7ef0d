package persona

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ourhouse/backend/internal/model/persona"
	"github.com/ourhouse/backend/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	personas persona.Store
}

// New 创建persona处理器
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
	r.Get("/roster", h.handleRoster)
	r.Get("/roster/{index}", h.handleResolveIndex)
}

// handleListPersonas 列出所有persona
func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

// handleRoster 返回场景路由使用的固定顺序
func (h *Handler) handleRoster(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string][]string{"roster": persona.Roster()})
}

func (h *Handler) handleResolveIndex(w http.ResponseWriter, r *http.Request) {
	p, err := persona.ResolveIndex(h.personas, chi.URLParam(r, "index"))
	switch {
	case errors.Is(err, persona.ErrInvalidIndex):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, persona.ErrUnknownPersona):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	default:
		utils.RespondJSON(w, http.StatusOK, p)
	}
}
