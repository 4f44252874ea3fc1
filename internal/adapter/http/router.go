package http

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"loandesk/internal/adapter/middleware"
	"loandesk/internal/adapter/realtime"
	"loandesk/internal/usecase/auth"
	"loandesk/internal/usecase/chat"
	"loandesk/internal/usecase/loan"
	"loandesk/internal/usecase/profile"
	"loandesk/internal/validation"
)

// Deps wires the API. Redis is optional; without it create routes run
// without idempotency.
type Deps struct {
	Auth      *auth.Usecase
	Tokens    *auth.Tokens
	Profiles  *profile.Usecase
	Loans     *loan.Usecase
	Chat      *chat.Usecase
	Feed      realtime.Subscriber
	Validator *validation.Validator

	Redis          *redis.Client
	IdempotencyTTL time.Duration

	FilesDir string
	Ready    map[string]Pinger
	// AccessLog toggles echo's request logger.
	AccessLog bool
}

// bodyLimit leaves room for multipart framing around a 5 MiB attachment.
const bodyLimit = "6M"

func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if d.Validator != nil {
		e.Validator = d.Validator
	}
	if d.AccessLog {
		e.Use(echomw.Logger())
	}
	e.Use(echomw.Recover(), echomw.BodyLimit(bodyLimit))

	h := NewHandler(d.Ready)
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)
	if d.FilesDir != "" {
		e.Static("/files", d.FilesDir)
	}

	ah := NewAuthHandler(d.Auth)
	e.POST("/auth/register", ah.Register)
	e.POST("/auth/login", ah.Login)

	var idem echo.MiddlewareFunc = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if d.Redis != nil {
		idem = middleware.Idempotency(d.Redis, d.IdempotencyTTL)
	}

	api := e.Group("", middleware.JWTAuth(d.Tokens, d.Auth))
	api.GET("/me", ah.Me)

	ph := NewProfileHandler(d.Profiles)
	api.GET("/profile", ph.GetMine)
	api.PUT("/profile", ph.SaveMine)
	api.GET("/profiles/:owner_id", ph.Get)

	lh := NewLoanHandler(d.Loans)
	api.POST("/loans", lh.CreateLoan, idem)
	api.GET("/loans", lh.ListMine)
	api.GET("/loans/:loan_id", lh.GetLoan)

	ch := NewChatHandler(d.Chat, d.Feed)
	api.GET("/chat/me", ch.Viewer)
	api.POST("/chat/conversation", ch.EnsureConversation)
	api.GET("/chat/conversations/:conversation_id", ch.Conversation)
	api.GET("/chat/conversations/:conversation_id/messages", ch.History)
	api.POST("/chat/conversations/:conversation_id/messages", ch.Send, idem)
	api.GET("/chat/conversations/:conversation_id/typing", ch.Typing)
	api.PUT("/chat/conversations/:conversation_id/typing", ch.SetTyping)
	api.GET("/chat/conversations/:conversation_id/events", ch.Events)
	api.POST("/chat/messages/:message_id/read", ch.MarkRead)
	api.POST("/chat/attachments", ch.Upload)

	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.GET("/profiles", ph.List)
	admin.PUT("/profiles/:owner_id", ph.Save)
	admin.PUT("/profiles/:owner_id/admin", ph.SetAdmin)
	admin.GET("/loans", lh.List)
	admin.POST("/loans/:loan_id/decision", lh.Decide, idem)
	admin.GET("/conversations", ch.ListConversations)
	admin.POST("/conversations/:conversation_id/archive", ch.Archive)

	return e
}
