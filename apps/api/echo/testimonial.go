package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/testimonial"
)

type testimonialApi struct {
	svc *testimonial.Service
}

func registerTestimonialAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *testimonial.Service) {
	api := testimonialApi{svc: svc}

	tg := g.Group("/testimonials")
	tg.POST("", api.submit)
	tg.GET("", api.queryApproved)

	ag := tg.Group("", jwt)
	ag.GET("/all", api.queryAll, adminMiddleware())
	ag.PUT("/:id/approve", api.approve, adminMiddleware())
	ag.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *testimonialApi) submit(ctx echo.Context) error {
	var data testimonial.NewTestimonial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTestimonial")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting testimonial")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *testimonialApi) queryApproved(ctx echo.Context) error {
	ts, err := api.svc.QueryApproved(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying testimonials")
	}
	if ts == nil {
		ts = []testimonial.Testimonial{}
	}
	return ctx.JSON(http.StatusOK, ts)
}

func (api *testimonialApi) queryAll(ctx echo.Context) error {
	ts, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying testimonials")
	}
	if ts == nil {
		ts = []testimonial.Testimonial{}
	}
	return ctx.JSON(http.StatusOK, ts)
}

func (api *testimonialApi) approve(ctx echo.Context) error {
	var data ApproveTestimonialRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveTestimonialRequest")
	}

	t, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"), data.Featured)
	if err != nil {
		if errors.Cause(err) == testimonial.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "approving testimonial")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *testimonialApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == testimonial.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting testimonial")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type ApproveTestimonialRequest struct {
	Featured bool `json:"featured"`
}
