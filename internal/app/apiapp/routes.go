package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/avoronkov/flare/internal/config"
	"github.com/avoronkov/flare/internal/realtime"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
	chatsvc "github.com/avoronkov/flare/internal/services/chat"
	feedsvc "github.com/avoronkov/flare/internal/services/feed"
	matchessvc "github.com/avoronkov/flare/internal/services/matches"
	mediasvc "github.com/avoronkov/flare/internal/services/media"
	profilessvc "github.com/avoronkov/flare/internal/services/profiles"
	swipesvc "github.com/avoronkov/flare/internal/services/swipes"
	"github.com/avoronkov/flare/internal/transport/http/handlers"
	"github.com/avoronkov/flare/internal/transport/ws"
)

type Dependencies struct {
	AuthService    *authsvc.Service
	SwipeService   *swipesvc.Service
	FeedService    *feedsvc.Service
	MatchService   *matchessvc.Service
	ChatService    *chatsvc.Service
	ProfileService *profilessvc.Service
	MediaService   *mediasvc.Service
	Broker         *realtime.Broker
	Logger         *zap.Logger
	Config         config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	feedHandler := handlers.NewFeedHandler(deps.FeedService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	chatHandler := handlers.NewChatHandler(deps.ChatService)
	profileHandler := handlers.NewProfileHandler(deps.ProfileService)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	presenceMW := PresenceMiddleware(deps.ProfileService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.With(authMW, presenceMW).Get("/me", profileHandler.Me)
		r.With(authMW, presenceMW).Patch("/me", profileHandler.Update)
		r.With(authMW, presenceMW).Post("/me/photos", mediaHandler.UploadProfilePhoto)
		r.With(authMW, presenceMW).Delete("/me/photos", mediaHandler.RemoveProfilePhoto)
		r.With(authMW, presenceMW).Get("/profiles/{userID}", profileHandler.Get)

		r.With(authMW, presenceMW).Get("/feed", feedHandler.Handle)
		r.With(authMW, presenceMW).Post("/swipes", swipeHandler.Handle)
		r.With(authMW, presenceMW).Post("/swipes/cache/rebuild", swipeHandler.RebuildCache)

		r.With(authMW, presenceMW).Get("/matches", matchesHandler.List)
		r.With(authMW, presenceMW).Delete("/matches/{matchID}", matchesHandler.Unmatch)

		r.With(authMW, presenceMW).Get("/matches/{matchID}/messages", chatHandler.List)
		r.With(authMW, presenceMW).Post("/matches/{matchID}/messages", chatHandler.Send)
		r.With(authMW, presenceMW).Post("/matches/{matchID}/messages/{messageID}/read", chatHandler.MarkRead)
		r.With(authMW, presenceMW).Patch("/matches/{matchID}/messages/{messageID}", chatHandler.Edit)
		r.With(authMW, presenceMW).Delete("/matches/{matchID}/messages/{messageID}", chatHandler.Delete)

		r.With(authMW, presenceMW).Post("/matches/{matchID}/images", mediaHandler.UploadChatImage)
		r.With(authMW, presenceMW).Get("/media/url", mediaHandler.SignedURL)
	})

	// WebSocket does its own token auth via query parameter.
	r.Get("/v1/ws", ws.Handler(ws.Dependencies{
		Auth:     deps.AuthService,
		Matches:  deps.MatchService,
		Profiles: deps.ProfileService,
		Chat:     deps.ChatService,
		Broker:   deps.Broker,
		Logger:   deps.Logger,
	}))
}
