package main

import (
	"log"
	"os"

	echoapi "github.com/eduhive/backend/apps/api/echo"
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
	emailsvc "github.com/eduhive/backend/services/email"
	logsvc "github.com/eduhive/backend/services/logger"
	paymentsvc "github.com/eduhive/backend/services/payment"
	"github.com/eduhive/backend/storage/database"
	sqlxrepos "github.com/eduhive/backend/storage/database/sqlx"
)

// TODO:
// - graceful shutdown
// - rate limiting on auth endpoints
func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(database.Migrate(db.DB))

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	hub := broadcastsvc.NewHub(logger)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	lbSvc := leaderboard.NewService(sqlxrepos.NewLeaderboardRepository(db), hub)
	quizSvc := quiz.NewService(sqlxrepos.NewQuizRepository(db), usrSvc, lbSvc, hub, logger)
	moduleSvc := module.NewService(sqlxrepos.NewModuleRepository(db))
	badgeSvc := badge.NewService(sqlxrepos.NewBadgeRepository(db))
	newsSvc := newsletter.NewService(sqlxrepos.NewNewsletterRepository(db), mailSvc)
	testiSvc := testimonial.NewService(sqlxrepos.NewTestimonialRepository(db))
	gateway := paymentsvc.NewMpesaClient(core.Conf.Mpesa, logger)
	billSvc := billing.NewService(sqlxrepos.NewBillingRepository(db), gateway, hub, logger)
	commSvc := community.NewService(sqlxrepos.NewCommunityRepository(db), hub)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address:        core.Conf.Server.Address(),
			UserSvc:        usrSvc,
			QuizSvc:        quizSvc,
			ModuleSvc:      moduleSvc,
			BadgeSvc:       badgeSvc,
			LeaderboardSvc: lbSvc,
			NewsletterSvc:  newsSvc,
			TestimonialSvc: testiSvc,
			BillingSvc:     billSvc,
			CommunitySvc:   commSvc,
			Hub:            hub,
			Logger:         logger,
		},
	)
	app.Start()
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
