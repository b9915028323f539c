package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/internal/relay/service"
	"github.com/streamhive/watchparty/pkg/validator"
	"github.com/streamhive/watchparty/pkg/wsrouter"
)

type iRelayService interface {
	ConnectMember(context.Context, *service.ConnectMemberParams) (string, error)
	JoinRoom(context.Context, *service.JoinRoomParams) (service.JoinRoomResponse, error)
	DisconnectMember(context.Context, *service.DisconnectMemberParams) (service.DisconnectMemberResponse, error)
	RequestSync(context.Context, *service.RequestSyncParams) (protocol.Message, error)
	Play(context.Context, *service.PlayParams) (service.Broadcast, error)
	UpdatePlayer(context.Context, *service.UpdatePlayerParams) (service.Broadcast, error)
	SendReaction(context.Context, *service.SendReactionParams) (service.Broadcast, error)
	EndStream(context.Context, *service.EndStreamParams) (service.Broadcast, error)
	PostMessage(context.Context, *service.PostMessageParams) service.Broadcast
}

type controller struct {
	relayService iRelayService
	upgrader     websocket.Upgrader
	wsmux        *wsrouter.WSRouter
	validate     *validator.Validator
	metrics      *metrics
	logger       *slog.Logger
}

func NewController(relayService iRelayService, reg *prometheus.Registry, logger *slog.Logger) *controller {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		relayService: relayService,
		validate:     validator.NewValidator(),
		metrics:      newMetrics(reg),
		logger:       logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
