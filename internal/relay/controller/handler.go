package controller

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/streamhive/watchparty/internal/relay/service"
	"github.com/streamhive/watchparty/pkg/ctxlogger"
)

const maxUsernameLength = 32

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		username = "anonymous"
	}
	if len(username) > maxUsernameLength {
		username = username[:maxUsernameLength]
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	p := newPeer(conn)
	memberID, err := c.relayService.ConnectMember(r.Context(), &service.ConnectMemberParams{
		Conn:     p,
		Username: username,
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect member", "error", err)
		p.Close()
		return
	}

	c.metrics.conns.Inc()
	defer c.metrics.conns.Dec()

	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("member_id", memberID))
	ctx = c.withPeer(ctx, p, memberID)
	c.logger.InfoContext(ctx, "member connected", "username", username)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(ctx, "connection closed", "error", err)
	}

	disconnectResp, err := c.relayService.DisconnectMember(ctx, &service.DisconnectMemberParams{Conn: p})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect member", "error", err)
		return
	}

	c.broadcast(ctx, disconnectResp.Broadcast)
}
