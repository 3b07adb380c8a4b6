package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/community"
)

type communityApi struct {
	svc *community.Service
}

func registerCommunityAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *community.Service) {
	api := communityApi{svc: svc}

	cg := g.Group("/community/posts", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.POST("/:id/like", api.like)
	cg.POST("/:id/comments", api.comment)
}

// Handlers

func (api *communityApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data community.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.CreatePost(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *communityApi) query(ctx echo.Context) error {
	posts, err := api.svc.QueryPosts(ctx.Request().Context(), ctx.QueryParam("forum"))
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	if posts == nil {
		posts = []community.Post{}
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *communityApi) like(ctx echo.Context) error {
	p, err := api.svc.LikePost(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == community.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "liking post")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *communityApi) comment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data community.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	c, err := api.svc.AddComment(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		if errors.Cause(err) == community.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding comment")
	}
	return ctx.JSON(http.StatusCreated, c)
}
