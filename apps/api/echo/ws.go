package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/leaderboard"
	broadcastsvc "github.com/eduhive/backend/services/broadcast"
)

type wsApi struct {
	hub *broadcastsvc.Hub
}

func registerWsAPI(g *echo.Group, hub *broadcastsvc.Hub) {
	api := wsApi{hub: hub}
	g.GET("/ws", api.subscribe)
}

// subscribe upgrades the connection and pumps events for the requested
// topics (comma-separated `topics` query param) until the client goes away.
func (api *wsApi) subscribe(ctx echo.Context) error {
	topics := []string{leaderboard.Topic}
	if raw := ctx.QueryParam("topics"); raw != "" {
		topics = topics[:0]
		for _, topic := range strings.Split(raw, ",") {
			if topic = strings.TrimSpace(topic); topic != "" {
				topics = append(topics, topic)
			}
		}
	}

	conn, err := broadcastsvc.Upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}
	defer conn.Close()

	api.hub.Subscribe(conn, topics...)
	return nil
}
