package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core"
	"github.com/eduhive/backend/core/badge"
)

type badgeApi struct {
	svc *badge.Service
}

func registerBadgeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *badge.Service) {
	api := badgeApi{svc: svc}

	bg := g.Group("/badges")
	bg.GET("", api.query)
	bg.GET("/:id", api.retrieve)

	// per-route middleware: a sub-group with middleware registers catch-all
	// routes that would shadow the public GETs above
	bg.POST("", api.create, jwt, adminMiddleware())
	bg.PUT("/:id", api.update, jwt, adminMiddleware())
	bg.PUT("/:id/award", api.award, jwt, adminMiddleware())
	bg.DELETE("/:id", api.destroy, jwt, adminMiddleware())
}

// Handlers

func (api *badgeApi) query(ctx echo.Context) error {
	bs, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying badges")
	}
	if bs == nil {
		bs = []badge.Badge{}
	}
	return ctx.JSON(http.StatusOK, bs)
}

func (api *badgeApi) retrieve(ctx echo.Context) error {
	b, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapBadgeErr(err)
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *badgeApi) create(ctx echo.Context) error {
	var data badge.NewBadge
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBadge")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	b, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating badge")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *badgeApi) update(ctx echo.Context) error {
	var data badge.UpdateBadge
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBadge")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	b, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return trapBadgeErr(err)
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *badgeApi) award(ctx echo.Context) error {
	var data AwardBadgeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AwardBadgeRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	b, err := api.svc.Award(ctx.Request().Context(), ctx.Param("id"), data.Winner)
	if err != nil {
		return trapBadgeErr(err)
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *badgeApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return trapBadgeErr(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func trapBadgeErr(err error) error {
	if errors.Cause(err) == badge.ErrNotFound {
		return errHttpNotFound
	}
	return err
}

type AwardBadgeRequest struct {
	Winner string `json:"winner" validate:"required,max=150"`
}

func (ar *AwardBadgeRequest) Validate() error {
	ar.Winner = core.CleanString(ar.Winner)
	return core.Validate.Struct(ar)
}
