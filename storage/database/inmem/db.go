package inmemdb

import (
	"sync"

	"github.com/eduhive/backend/core/badge"
	"github.com/eduhive/backend/core/billing"
	"github.com/eduhive/backend/core/community"
	"github.com/eduhive/backend/core/leaderboard"
	"github.com/eduhive/backend/core/module"
	"github.com/eduhive/backend/core/newsletter"
	"github.com/eduhive/backend/core/quiz"
	"github.com/eduhive/backend/core/testimonial"
	"github.com/eduhive/backend/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	// quizTable holds all quiz-related tables under one lock so
	// repository methods can mimic single-transaction semantics.
	quizTable struct {
		mutex     sync.RWMutex
		quizzes   map[string]*quiz.Quiz
		questions map[string]*quiz.Question
		attempts  map[string]*quiz.Attempt
		records   map[string]*quiz.AnswerRecord
	}

	leaderboardTable struct {
		mutex sync.RWMutex
		table map[string]*leaderboard.Entry // keyed by userID + activity
	}

	newsletterTable struct {
		mutex sync.RWMutex
		table map[string]*newsletter.Subscriber // keyed by email
	}

	testimonialTable struct {
		mutex sync.RWMutex
		table map[string]*testimonial.Testimonial
	}

	billingTable struct {
		mutex         sync.RWMutex
		payments      map[string]*billing.Payment
		subscriptions map[string]*billing.Subscription // keyed by userID
	}

	communityTable struct {
		mutex    sync.RWMutex
		posts    map[string]*community.Post
		comments map[string]*community.Comment
	}

	moduleTable struct {
		mutex sync.RWMutex
		table map[string]*module.Module
	}

	badgeTable struct {
		mutex sync.RWMutex
		table map[string]*badge.Badge
	}

	DB struct {
		user        *userTable
		quiz        *quizTable
		leaderboard *leaderboardTable
		newsletter  *newsletterTable
		testimonial *testimonialTable
		billing     *billingTable
		community   *communityTable
		module      *moduleTable
		badge       *badgeTable
	}
)

func NewDB() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		quiz: &quizTable{
			quizzes:   make(map[string]*quiz.Quiz),
			questions: make(map[string]*quiz.Question),
			attempts:  make(map[string]*quiz.Attempt),
			records:   make(map[string]*quiz.AnswerRecord),
		},
		leaderboard: &leaderboardTable{table: make(map[string]*leaderboard.Entry)},
		newsletter:  &newsletterTable{table: make(map[string]*newsletter.Subscriber)},
		testimonial: &testimonialTable{table: make(map[string]*testimonial.Testimonial)},
		billing: &billingTable{
			payments:      make(map[string]*billing.Payment),
			subscriptions: make(map[string]*billing.Subscription),
		},
		community: &communityTable{
			posts:    make(map[string]*community.Post),
			comments: make(map[string]*community.Comment),
		},
		module: &moduleTable{table: make(map[string]*module.Module)},
		badge:  &badgeTable{table: make(map[string]*badge.Badge)},
	}
}
