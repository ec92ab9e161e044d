package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/mindful-backend/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/mindful-backend/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers the operational endpoints: the health check used
// by load balancers and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the credential endpoints.  limit guards register
// and login against brute force; pass nil to disable it.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/api")
	var mw []echo.MiddlewareFunc
	if limit != nil {
		mw = append(mw, limit)
	}
	g.POST("/register", a.Register, mw...)
	g.POST("/login", a.Login, mw...)
	// The user directory is public.
	g.GET("/users", a.ListUsers)
}

// RegisterCommunity registers the bearer-protected endpoints under /api:
// posts, comments, upvotes, the mood journal and text prediction.
func RegisterCommunity(e *echo.Echo, p *handler.PostHandler, m *handler.MoodHandler, pr *handler.PredictHandler, jwtSecret string) {
	g := e.Group("/api", middleware.JWTAuth(jwtSecret))

	g.POST("/posts", p.Create)
	g.GET("/posts", p.List)
	g.GET("/posts/feed", p.Feed)
	g.DELETE("/posts/:id", p.Delete)
	g.POST("/posts/:id/upvote", p.Upvote)
	g.POST("/posts/:id/comments", p.AddComment)
	g.GET("/posts/:id/comments", p.ListComments)

	g.POST("/moods", m.Create)
	g.GET("/moods", m.List)

	g.POST("/predict", pr.Predict)
}

// MediaOptions carries the middleware applied to the media routes.  Nil
// entries are skipped.
type MediaOptions struct {
	UploadLimit   echo.MiddlewareFunc // body size cap on uploads
	MusicCache    echo.MiddlewareFunc // response cache for GET /music
	ExerciseCache echo.MiddlewareFunc // response cache for GET /exercises
}

// RegisterMedia registers the public music and exercise endpoints and the
// routes serving their stored files.
func RegisterMedia(e *echo.Echo, h *handler.MediaHandler, opts MediaOptions) {
	with := func(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
		if m == nil {
			return nil
		}
		return []echo.MiddlewareFunc{m}
	}

	e.POST("/upload-music", h.UploadMusic, with(opts.UploadLimit)...)
	e.GET("/music", h.ListMusic, with(opts.MusicCache)...)
	e.PUT("/music/:id", h.UpdateMusic)
	e.DELETE("/music/:id", h.DeleteMusic)

	e.POST("/upload-exercise", h.UploadExercise, with(opts.UploadLimit)...)
	e.POST("/exercises", h.UploadExercise, with(opts.UploadLimit)...)
	e.GET("/exercises", h.ListExercises, with(opts.ExerciseCache)...)
	e.PUT("/exercises/:id", h.UpdateExercise)
	e.DELETE("/exercises/:id", h.DeleteExercise)

	e.GET("/uploads/:filename", h.ServeMusic)
	e.GET("/uploads/exercise_videos/:filename", h.ServeExercise)
	e.GET("/uploads/:subdir/:filename", h.InvalidUploadDir)
}
