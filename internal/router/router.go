package router

import (
	"fmt"
	"net/http"
	"time"

	"plaza/internal/config"
	"plaza/internal/handlers"
	"plaza/internal/identity"
	"plaza/internal/middleware"
	"plaza/internal/services"
	"plaza/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	sessionName    = "plaza_session"
	listCacheItems = 256
)

// Deps is the service graph the routes are built on.
type Deps struct {
	DB       *gorm.DB
	Posts    *services.PostService
	Ledger   *services.Ledger
	Queries  *services.Queries
	Users    *services.UserService
	Resolver *identity.Resolver
}

// NewDeps wires the services over one database connection.
func NewDeps(cfg *config.Config, conn *gorm.DB) (Deps, error) {
	cache, err := utils.NewCache(listCacheItems)
	if err != nil {
		return Deps{}, fmt.Errorf("listing cache: %w", err)
	}
	return Deps{
		DB:       conn,
		Posts:    services.NewPostService(conn, cache, services.PolicyByName(cfg.PostAuthoring)),
		Ledger:   services.NewLedger(conn),
		Queries:  services.NewQueries(conn, cache, cfg.ListCacheTTL),
		Users:    services.NewUserService(conn, cache, cfg.IsAdminEmail),
		Resolver: identity.NewResolver(cfg.GuestHashKey()),
	}, nil
}

// New builds the engine with the global middleware stack and all routes.
func New(cfg *config.Config, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.LoadUser(d.Users))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	postHandler := handlers.NewPostHandler(d.Posts, d.Queries)
	commentHandler := handlers.NewCommentHandler(d.Ledger)
	likeHandler := handlers.NewLikeHandler(d.Ledger)
	authHandler := handlers.NewAuthHandler(d.Users)
	healthHandler := handlers.NewHealthHandler(d.DB)

	// peek never issues a guest cookie; act does when the caller has none
	peek := middleware.ResolveActor(d.Resolver, false)
	act := middleware.ResolveActor(d.Resolver, true)

	r.GET("/healthz", healthHandler.Check)

	// Public Routes
	r.GET("/", postHandler.Index)
	r.GET("/posts", postHandler.Index)
	r.GET("/posts/:id", peek, postHandler.Show)

	r.GET("/signup", authHandler.ShowRegister)
	r.POST("/signup", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// Guests may comment and like
	social := r.Group("/posts/:id")
	{
		social.POST("/comments", act, commentHandler.Create)
		social.DELETE("/comments/:commentId", peek, commentHandler.Destroy)
		social.POST("/likes", act, likeHandler.Create)
		social.DELETE("/likes/:likeId", peek, likeHandler.Destroy)
	}

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired(), peek)
	{
		authorized.POST("/posts", postHandler.Create)
		authorized.PATCH("/posts/:id", postHandler.Update)
		authorized.DELETE("/posts/:id", postHandler.Destroy)
		authorized.DELETE("/account", authHandler.DestroyAccount)
	}
}
