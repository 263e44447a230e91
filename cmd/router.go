package cmd

import (
	"net/http"

	"bloom-backend/internal/config"
	"bloom-backend/internal/handlers"
	"bloom-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter(app *application, metricsCfg config.MetricsConfig) http.Handler {
	// Initialize handlers
	userHandler := handlers.NewUserHandler(app.users, app.push)
	requestHandler := handlers.NewCoupleRequestHandler(app.pairing)
	questionHandler := handlers.NewQuestionHandler(app.questions)
	journalHandler := handlers.NewJournalHandler(app.journals)
	postHandler := handlers.NewPostHandler(app.posts)
	edgeHandler := handlers.NewEdgeHandler(app.posts, app.journals)
	wsHandler := handlers.NewWebSocketHandler(app.hub, app.broker, app.users, app.pairing, app.questions, app.store.Couples)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	auth := middleware.AuthMiddleware(app.users)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signup", userHandler.SignUp)
		r.Post("/auth/signin", userHandler.SignIn)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Post("/auth/refresh", userHandler.Refresh)
			r.Post("/auth/signout", userHandler.SignOut)
			r.Get("/profile", userHandler.GetProfile)
			r.Put("/profile", userHandler.UpdateProfile)
			r.Put("/push-tokens", userHandler.RegisterPushToken)

			r.Route("/couple-requests", func(r chi.Router) {
				r.Get("/", requestHandler.List)
				r.Post("/", requestHandler.Send)
				r.Post("/{request_id}/accept", requestHandler.Accept)
				r.Post("/{request_id}/decline", requestHandler.Decline)
				r.Post("/{request_id}/cancel", requestHandler.Cancel)
			})

			r.Get("/questions/today", questionHandler.Today)
			r.Post("/questions", questionHandler.Create)
			r.Get("/questions/{question_id}/answers", questionHandler.Answers)
			r.Put("/questions/{question_id}/answer", questionHandler.SubmitAnswer)
			r.Get("/streak", questionHandler.Streak)

			r.Route("/journals", func(r chi.Router) {
				r.Get("/", journalHandler.List)
				r.Post("/", journalHandler.Create)
				r.Get("/shared", journalHandler.ListShared)
				r.Get("/{journal_id}", journalHandler.Get)
				r.Put("/{journal_id}", journalHandler.Update)
				r.Get("/{journal_id}/summaries", journalHandler.Summaries)
			})

			r.Post("/prompts", postHandler.CreatePrompt)
			r.Post("/photos/upload", postHandler.UploadPhoto)
			r.Get("/posts", postHandler.GetPosts)
		})
	})

	// Edge services
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/finalize", edgeHandler.Finalize)
		r.Post("/journal-summarize", edgeHandler.JournalSummarize)
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	if metricsCfg.Enabled {
		r.Handle(metricsCfg.Path, promhttp.Handler())
	}

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
