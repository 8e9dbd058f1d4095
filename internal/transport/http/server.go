package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/service/messages"
	"github.com/vovakirdan/supportchat-server/internal/service/uploads"
	"github.com/vovakirdan/supportchat-server/internal/service/users"
	"github.com/vovakirdan/supportchat-server/internal/service/wordlist"
)

// Services bundles the collaborators the HTTP layer talks to.
type Services struct {
	Gate     *core.Gate
	Auth     *auth.Service
	Users    *users.Service
	Messages *messages.Service
	WordList *wordlist.Service
	Uploads  *uploads.Service
}

// NewServer builds an HTTP server with the REST API and the chat socket.
// The socket sits on the mux beside gin so the upgrade can hijack the
// connection before anything is written.
func NewServer(svc Services, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(svc, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler mounts the chat socket and the REST router on one mux.
func NewHandler(svc Services, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(svc.Gate, cfg, logger))
	mux.Handle("/", NewRouter(svc, cfg, logger))
	return mux
}

// NewRouter registers every route on a gin engine.
func NewRouter(svc Services, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger), CORS(cfg.AllowedOrigins, cfg.Production))

	r.GET("/health", healthHandler)
	if svc.Uploads != nil {
		r.Static(uploads.URLPrefix, svc.Uploads.Dir())
	}

	api := r.Group("/api")
	api.Use(RateLimit(cfg.APIRateLimit, logger))

	authHandlers := NewAPIHandlers(svc.Auth, svc.Users, logger)
	api.POST("/auth/login", RateLimit(cfg.LoginRateLimit, logger), authHandlers.Login)
	api.POST("/auth/send-register-code", RateLimit(cfg.RegisterCodeRateLimit, logger), authHandlers.SendRegisterCode)
	api.POST("/auth/register", RateLimit(cfg.RegisterRateLimit, logger), authHandlers.Register)

	protected := api.Group("")
	protected.Use(AuthMiddleware(svc.Auth, logger))
	protected.GET("/auth/me", authHandlers.Me)

	admin := protected.Group("")
	admin.Use(AdminOnly())

	admin.GET("/admin/mail-config", authHandlers.GetMailConfig)
	admin.PUT("/admin/mail-config", authHandlers.PutMailConfig)

	userHandlers := NewUserHandlers(svc.Users, logger)
	admin.GET("/users", userHandlers.ListUsers)
	admin.POST("/users", userHandlers.CreateUser)
	admin.PATCH("/users/:id", userHandlers.UpdateUser)
	admin.DELETE("/users/:id", userHandlers.DeleteUser)

	wordHandlers := NewWordListHandlers(svc.WordList, logger)
	admin.GET("/forbidden-words", wordHandlers.ListWords)
	admin.POST("/forbidden-words", wordHandlers.CreateWord)
	admin.PATCH("/forbidden-words/:id", wordHandlers.UpdateWord)
	admin.DELETE("/forbidden-words/:id", wordHandlers.DeleteWord)
	protected.GET("/quick-phrases", wordHandlers.ListPhrases)
	admin.POST("/quick-phrases", wordHandlers.CreatePhrase)
	admin.PATCH("/quick-phrases/:id", wordHandlers.UpdatePhrase)
	admin.DELETE("/quick-phrases/:id", wordHandlers.DeletePhrase)

	messageHandlers := NewMessageHandlers(svc.Messages, logger)
	protected.GET("/messages", messageHandlers.History)
	protected.GET("/messages/conversations", messageHandlers.Conversations)
	protected.GET("/messages/:id", messageHandlers.GetMessage)
	admin.DELETE("/messages/:id", messageHandlers.DeleteMessage)
	admin.DELETE("/messages/peer/:peerId", messageHandlers.DeleteConversation)

	uploadHandlers := NewUploadHandlers(svc.Uploads, svc.Users, logger)
	protected.POST("/upload", uploadHandlers.Upload)
	admin.DELETE("/upload/cleanup", uploadHandlers.Cleanup)

	return r
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
