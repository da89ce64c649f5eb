package api

import (
	"net/http"
	"time"

	"sqlgym/internal/api/handler"
	"sqlgym/internal/app/service"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(
	dispatcher *service.DispatcherService,
	resultService *service.ResultService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		submissionHandler := handler.NewSubmissionHandler(dispatcher, resultService)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)
	})

	return r
}
