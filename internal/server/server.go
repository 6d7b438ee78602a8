package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/campus-market/internal/config"
	"github.com/shinyyama/campus-market/internal/handler"
	appmw "github.com/shinyyama/campus-market/internal/middleware"
	"github.com/shinyyama/campus-market/internal/repository"
	"github.com/shinyyama/campus-market/internal/service"
	"github.com/shinyyama/campus-market/internal/session"
	"github.com/shinyyama/campus-market/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"gorm.io/gorm"
)

// bodyLimit leaves room for the multipart envelope around a maximum-size image.
const bodyLimit = "8M"

type Server struct {
	e     *echo.Echo
	sha   string
	build string
}

func New(cfg *config.Config, db *gorm.DB, sessions *session.Manager, images storage.ImageStore, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Validator = handler.NewFormValidator()

	auth := appmw.NewAuthMiddleware(sessions, cfg.Session.CookieName, cfg.IsProduction())

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestContext)
	if cfg.OTel.Enabled() {
		e.Use(otelecho.Middleware(cfg.OTel.ServiceName))
	}
	e.Use(appmw.RequestLogger())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(auth.LoadSession)

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	listingRepo := repository.NewListingRepository(db)
	convRepo := repository.NewConversationRepository(db)

	accountSvc := service.NewAccountService(userRepo)
	categorySvc := service.NewCategoryService(categoryRepo)
	listingSvc := service.NewListingService(listingRepo, categoryRepo, images)
	convSvc := service.NewConversationService(convRepo, listingRepo)

	homeHandler := handler.NewHomeHandler(listingSvc, categorySvc)
	authHandler := handler.NewAuthHandler(accountSvc, auth)
	listingHandler := handler.NewListingHandler(listingSvc, categorySvc)
	convHandler := handler.NewConversationHandler(convSvc)
	accountHandler := handler.NewAccountHandler(accountSvc, listingSvc, auth)
	userHandler := handler.NewUserHandler(accountSvc, listingSvc)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})
	if cfg.Storage.Backend == "" || cfg.Storage.Backend == "local" {
		e.Static(cfg.Storage.MediaURL, cfg.Storage.MediaDir)
	}

	e.GET("/", homeHandler.Index)
	e.GET("/signup", authHandler.SignupForm)
	e.POST("/signup", authHandler.Signup)
	e.GET("/login", authHandler.LoginForm)
	e.POST("/login", authHandler.Login)

	e.GET("/users/:id", userHandler.GetPublic)

	e.GET("/listings", listingHandler.Index)
	e.GET("/listings/new", listingHandler.NewForm, auth.RequireAuth)
	e.POST("/listings/new", listingHandler.Create, auth.RequireAuth)
	e.GET("/listings/:id", listingHandler.Detail)
	e.GET("/listings/:id/edit", listingHandler.EditForm, auth.RequireAuth)
	e.POST("/listings/:id/edit", listingHandler.Edit, auth.RequireAuth)
	e.POST("/listings/:id/delete", listingHandler.Delete, auth.RequireAuth)
	e.DELETE("/listings/:id", listingHandler.Delete, auth.RequireAuth)

	chat := e.Group("/chat", auth.RequireAuth)
	chat.GET("", convHandler.Inbox)
	chat.GET("/new/:listingId", convHandler.New)
	chat.POST("/new/:listingId", convHandler.Start)
	chat.GET("/:id", convHandler.Detail)
	chat.POST("/:id", convHandler.Post)

	account := e.Group("/account", auth.RequireAuth)
	account.GET("", accountHandler.Profile)
	account.GET("/edit", accountHandler.EditForm)
	account.POST("/edit", accountHandler.Edit)
	account.GET("/password", accountHandler.PasswordForm)
	account.POST("/password", accountHandler.ChangePassword)
	account.GET("/logout", authHandler.Logout)
	account.POST("/logout", authHandler.Logout)
	e.GET("/dashboard", accountHandler.Dashboard, auth.RequireAuth)

	return &Server{e: e, sha: sha, build: buildTime}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}
