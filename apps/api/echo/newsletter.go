package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core"
	"github.com/eduhive/backend/core/newsletter"
)

type newsletterApi struct {
	svc *newsletter.Service
}

func registerNewsletterAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *newsletter.Service) {
	api := newsletterApi{svc: svc}

	ng := g.Group("/newsletter")
	ng.POST("/subscribe", api.subscribe)
	ng.POST("/unsubscribe", api.unsubscribe)

	ag := ng.Group("", jwt)
	ag.GET("/subscribers", api.query, adminMiddleware())
}

// Handlers

func (api *newsletterApi) subscribe(ctx echo.Context) error {
	var data newsletter.NewSubscriber
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubscriber")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sub, err := api.svc.Subscribe(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "subscribing")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *newsletterApi) unsubscribe(ctx echo.Context) error {
	var data UnsubscribeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UnsubscribeRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.Unsubscribe(ctx.Request().Context(), data.Email); err != nil {
		// do not reveal whether the email was subscribed
		if errors.Cause(err) != newsletter.ErrNotFound {
			return errors.Wrap(err, "unsubscribing")
		}
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "You have been unsubscribed."})
}

func (api *newsletterApi) query(ctx echo.Context) error {
	subs, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subscribers")
	}
	if subs == nil {
		subs = []newsletter.Subscriber{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

type UnsubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (ur *UnsubscribeRequest) Validate() error {
	ur.Email = core.CleanString(ur.Email, true /* lower */)
	return core.Validate.Struct(ur)
}
