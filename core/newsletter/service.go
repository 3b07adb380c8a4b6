package newsletter

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/eduhive/backend/core"
)

var (
	ErrNotFound      = errors.New("subscriber not found")
	ErrAlreadyExists = errors.New("this email is already subscribed")
)

type (
	Repository interface {
		CreateSubscriber(ctx context.Context, sub Subscriber) (Subscriber, error)
		GetSubscriberByEmail(ctx context.Context, email string) (Subscriber, error)
		QueryAllSubscribers(ctx context.Context) ([]Subscriber, error)
		DeleteSubscriberByEmail(ctx context.Context, email string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

// Subscribe registers the subscriber and sends a welcome email.
// Subscribing an already registered email is a no-op.
func (svc *Service) Subscribe(ctx context.Context, ns NewSubscriber) (Subscriber, error) {
	if sub, err := svc.repo.GetSubscriberByEmail(ctx, ns.Email); err == nil {
		return sub, nil
	} else if errors.Cause(err) != ErrNotFound {
		return Subscriber{}, err
	}

	sub := Subscriber{
		Name:         ns.Name,
		Phone:        ns.Phone,
		Email:        ns.Email,
		SubscribedAt: time.Now().UTC(),
	}
	sub, err := svc.repo.CreateSubscriber(ctx, sub)
	if err != nil {
		return Subscriber{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: sub.Name, Address: sub.Email}},
		Subject: "Welcome to our newsletter",
		BodyStr: fmt.Sprintf("Hi %s,\n\nThanks for subscribing to the %s newsletter!\n", sub.Name, core.Conf.AppName),
	})
	return sub, nil
}

func (svc *Service) Unsubscribe(ctx context.Context, email string) error {
	return svc.repo.DeleteSubscriberByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]Subscriber, error) {
	return svc.repo.QueryAllSubscribers(ctx)
}
