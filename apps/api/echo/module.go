package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/module"
)

type moduleApi struct {
	svc *module.Service
}

func registerModuleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *module.Service) {
	api := moduleApi{svc: svc}

	mg := g.Group("/modules", jwt)
	mg.GET("", api.queryApproved)
	mg.POST("", api.create, contributorMiddleware())
	mg.GET("/mine", api.queryOwn, contributorMiddleware())
	mg.GET("/pending", api.queryPending, adminMiddleware())
	mg.GET("/:id", api.retrieve)
	mg.PUT("/:id", api.update, contributorMiddleware())
	mg.DELETE("/:id", api.destroy, contributorMiddleware())
	mg.PUT("/:id/approve", api.approve, adminMiddleware())
}

// Handlers

func (api *moduleApi) create(ctx echo.Context) error {
	var data module.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	m, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *moduleApi) queryApproved(ctx echo.Context) error {
	ms, err := api.svc.QueryApproved(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	if ms == nil {
		ms = []module.Module{}
	}
	return ctx.JSON(http.StatusOK, ms)
}

func (api *moduleApi) queryOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ms, err := api.svc.QueryOwn(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	if ms == nil {
		ms = []module.Module{}
	}
	return ctx.JSON(http.StatusOK, ms)
}

func (api *moduleApi) queryPending(ctx echo.Context) error {
	ms, err := api.svc.QueryPending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	if ms == nil {
		ms = []module.Module{}
	}
	return ctx.JSON(http.StatusOK, ms)
}

func (api *moduleApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	m, err := api.svc.GetVisible(ctx.Request().Context(), claims.Subject, ctx.Param("id"), claims.IsAdmin)
	if err != nil {
		return trapModuleErr(err)
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *moduleApi) update(ctx echo.Context) error {
	var data module.UpdateModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	m, err := api.svc.Update(ctx.Request().Context(), claims.Subject, ctx.Param("id"), claims.IsAdmin, data)
	if err != nil {
		return trapModuleErr(err)
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *moduleApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id"), claims.IsAdmin); err != nil {
		return trapModuleErr(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *moduleApi) approve(ctx echo.Context) error {
	m, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapModuleErr(err)
	}
	return ctx.JSON(http.StatusOK, m)
}

func trapModuleErr(err error) error {
	if errors.Cause(err) == module.ErrNotFound {
		return errHttpNotFound
	}
	return err
}
