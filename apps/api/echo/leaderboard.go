package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/leaderboard"
)

const defaultStandingsLimit = 50

type leaderboardApi struct {
	svc *leaderboard.Service
}

func registerLeaderboardAPI(g *echo.Group, svc *leaderboard.Service) {
	api := leaderboardApi{svc: svc}

	lg := g.Group("/leaderboard")
	lg.GET("", api.query)
	lg.GET("/:userId", api.retrieve)
}

// Handlers

func (api *leaderboardApi) query(ctx echo.Context) error {
	limit := defaultStandingsLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := api.svc.Query(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "querying standings")
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *leaderboardApi) retrieve(ctx echo.Context) error {
	entry, err := api.svc.GetByUserID(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		if errors.Cause(err) == leaderboard.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding entry by user ID")
	}
	return ctx.JSON(http.StatusOK, entry)
}
