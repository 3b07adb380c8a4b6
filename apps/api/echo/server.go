package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/eduhive/backend/core"
	"github.com/eduhive/backend/core/badge"
	"github.com/eduhive/backend/core/billing"
	"github.com/eduhive/backend/core/community"
	"github.com/eduhive/backend/core/leaderboard"
	"github.com/eduhive/backend/core/module"
	"github.com/eduhive/backend/core/newsletter"
	"github.com/eduhive/backend/core/quiz"
	"github.com/eduhive/backend/core/testimonial"
	"github.com/eduhive/backend/core/user"
	broadcastsvc "github.com/eduhive/backend/services/broadcast"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		UserSvc        user.Service
		QuizSvc        *quiz.Service
		ModuleSvc      *module.Service
		BadgeSvc       *badge.Service
		LeaderboardSvc *leaderboard.Service
		NewsletterSvc  *newsletter.Service
		TestimonialSvc *testimonial.Service
		BillingSvc     *billing.Service
		CommunitySvc   *community.Service
		Hub            *broadcastsvc.Hub
		Logger         core.Logger
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, func() { _ = s.Stop(context.Background()) })
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerQuizAPI(v1, jwt, s.opts.QuizSvc)
	registerModuleAPI(v1, jwt, s.opts.ModuleSvc)
	registerBadgeAPI(v1, jwt, s.opts.BadgeSvc)
	registerLeaderboardAPI(v1, s.opts.LeaderboardSvc)
	registerNewsletterAPI(v1, jwt, s.opts.NewsletterSvc)
	registerTestimonialAPI(v1, jwt, s.opts.TestimonialSvc)
	registerBillingAPI(v1, jwt, s.opts.BillingSvc, s.opts.Logger)
	registerCommunityAPI(v1, jwt, s.opts.CommunitySvc)
	registerWsAPI(v1, s.opts.Hub)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to EduHive API!")
}
