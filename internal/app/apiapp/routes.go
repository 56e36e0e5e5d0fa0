package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kikipou/Loopi-App/internal/config"
	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
	boardssvc "github.com/kikipou/Loopi-App/internal/services/boards"
	matchessvc "github.com/kikipou/Loopi-App/internal/services/matches"
	mediasvc "github.com/kikipou/Loopi-App/internal/services/media"
	postssvc "github.com/kikipou/Loopi-App/internal/services/posts"
	profilessvc "github.com/kikipou/Loopi-App/internal/services/profiles"
	ratesvc "github.com/kikipou/Loopi-App/internal/services/rate"
	swipersvc "github.com/kikipou/Loopi-App/internal/services/swiper"
	"github.com/kikipou/Loopi-App/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService    *authsvc.Service
	PostsService   *postssvc.Service
	ProfileService *profilessvc.Service
	SwipeService   *swipersvc.Service
	RateLimiter    *ratesvc.Limiter
	MatchesService *matchessvc.Service
	BoardsService  *boardssvc.Service
	MediaService   *mediasvc.Service
	Logger         *zap.Logger
	Config         config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	postsHandler := handlers.NewPostsHandler(deps.PostsService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService, deps.RateLimiter)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchesService)
	boardsHandler := handlers.NewBoardsHandler(deps.BoardsService)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)
	profileHandler := handlers.NewProfileHandler(deps.ProfileService)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Get("/session", authHandler.Session)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
	})

	r.Route("/posts", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/", postsHandler.List)
		r.Post("/", postsHandler.Create)
		r.Get("/{id}", postsHandler.Get)
		r.Patch("/{id}", postsHandler.Update)
		r.Delete("/{id}", postsHandler.Delete)
	})

	r.Route("/swipe", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/queue", swipeHandler.Queue)
		r.Get("/current", swipeHandler.Current)
		r.Post("/decision", swipeHandler.Decide)
	})

	r.Route("/matches", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/", matchesHandler.List)
		r.Delete("/{matchID}", matchesHandler.Unmatch)

		r.Route("/{matchID}/tasks", func(r chi.Router) {
			r.Get("/", boardsHandler.ListTasks)
			r.Post("/", boardsHandler.CreateTask)
			r.Patch("/{taskID}", boardsHandler.UpdateTask)
			r.Post("/{taskID}/status", boardsHandler.CycleTaskStatus)
			r.Delete("/{taskID}", boardsHandler.DeleteTask)
		})
		r.Route("/{matchID}/deadlines", func(r chi.Router) {
			r.Get("/", boardsHandler.ListDeadlines)
			r.Post("/", boardsHandler.CreateDeadline)
			r.Get("/summary", boardsHandler.DeadlineSummary)
			r.Delete("/{deadlineID}", boardsHandler.DeleteDeadline)
		})
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/", profileHandler.Me)
		r.Patch("/", profileHandler.Update)
	})
	r.With(authMW).Get("/users/{userID}/profile", profileHandler.Public)

	r.With(authMW).Post("/media/image", mediaHandler.UploadImage)
}
