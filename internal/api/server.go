// Package api - HTTP-граница сервиса: JSON-эндпоинты, websocket и служебные маршруты.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/auth"
	"github.com/UkralStul/studyabroad-realtime/internal/dataloader"
	"github.com/UkralStul/studyabroad-realtime/internal/moderation"
	"github.com/UkralStul/studyabroad-realtime/internal/poll"
	"github.com/UkralStul/studyabroad-realtime/internal/service"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

// Deps - зависимости, которые собирает main.
type Deps struct {
	Store         storage.Storage
	Verifier      auth.Verifier
	Gateway       http.Handler
	Gatherer      prometheus.Gatherer
	Forum         *service.Forum
	Chat          *service.Chat
	Notifications *service.Notifications
	Applications  *service.Applications
	Moderation    *moderation.Service
	Polls         *poll.Service
	Log           logrus.FieldLogger
}

type Server struct {
	store         storage.Storage
	verifier      auth.Verifier
	forum         *service.Forum
	chat          *service.Chat
	notifications *service.Notifications
	applications  *service.Applications
	moderation    *moderation.Service
	polls         *poll.Service
	log           logrus.FieldLogger
}

// NewRouter собирает chi-роутер со всеми маршрутами.
func NewRouter(d Deps) http.Handler {
	s := &Server{
		store:         d.Store,
		verifier:      d.Verifier,
		forum:         d.Forum,
		chat:          d.Chat,
		notifications: d.Notifications,
		applications:  d.Applications,
		moderation:    d.Moderation,
		polls:         d.Polls,
		log:           d.Log,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	// websocket: аутентификация внутри протокола, без request logger (hijack)
	router.Handle("/ws", d.Gateway)

	router.Route("/api", func(r chi.Router) {
		r.Use(requestLogger(d.Log))
		r.Use(s.authenticate)
		r.Use(func(next http.Handler) http.Handler { return dataloader.Middleware(d.Store, next) })

		r.Route("/forum/posts", func(r chi.Router) {
			r.Post("/", s.createPost)
			r.Get("/", s.listPosts)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getPost)
				r.Patch("/", s.updatePost)
				r.Post("/like", s.toggleLike)
				r.Post("/comments", s.addComment)
				r.Get("/comments", s.listComments)
				r.Post("/report", s.reportPost)
				r.Post("/vote", s.vote)
				r.Get("/poll", s.pollResults)
			})
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/messages", s.sendMessage)
			r.Post("/messages/{id}/read", s.markMessageRead)
			r.Get("/conversations/{studentId}/{counselorId}", s.listConversation)
		})

		r.Get("/notifications", s.listNotifications)
		r.Post("/notifications/{id}/read", s.markNotificationRead)

		r.Post("/applications", s.createApplication)
		r.Patch("/applications/{id}/status", s.updateApplicationStatus)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/forum/posts/{id}/reports", s.listReports)
			r.Post("/forum/posts/{id}/restore", s.restorePost)
			r.Post("/forum/posts/{id}/moderate", s.moderatePost)
			r.Post("/notifications", s.createNotification)
		})
	})

	return router
}
