package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ourhouse/backend/internal/handler/chat"
	"github.com/ourhouse/backend/internal/handler/fortune"
	"github.com/ourhouse/backend/internal/handler/persona"
	"github.com/ourhouse/backend/internal/handler/stage"
	"github.com/ourhouse/backend/internal/handler/stream"
	personaModel "github.com/ourhouse/backend/internal/model/persona"
	"github.com/ourhouse/backend/internal/service/dialogue"
	fortuneService "github.com/ourhouse/backend/internal/service/fortune"
	"github.com/ourhouse/backend/pkg/utils"
)

// Deps 路由依赖的核心服务。
type Deps struct {
	Personas personaModel.Store
	Dialogue *dialogue.Service
	Fortune  *fortuneService.Service
	Stage    stage.Config
	Logger   logrus.FieldLogger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	personaHandler := persona.New(deps.Personas)
	chatHandler := chat.New(deps.Dialogue, deps.Logger)
	fortuneHandler := fortune.New(deps.Fortune, deps.Logger)
	streamHandler := stream.New(deps.Dialogue, deps.Logger)
	stageHandler := stage.New(dialogue.NewLocal(deps.Dialogue), deps.Personas, deps.Stage, deps.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"fortune": deps.Fortune.Available(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		fortuneHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
	})

	stageHandler.RegisterRoutes(r)

	return r
}
