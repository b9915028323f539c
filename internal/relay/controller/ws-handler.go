package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/internal/relay/service"
	"github.com/streamhive/watchparty/pkg/wsrouter"
)

func (c controller) handleJoinRoom(ctx context.Context, payload json.RawMessage) error {
	input, err := protocol.DecodeAs[protocol.JoinRoom](wsrouter.GetEventFromCtx(ctx), payload)
	if err != nil {
		return err
	}

	joinRoomResp, err := c.relayService.JoinRoom(ctx, &service.JoinRoomParams{
		MemberID: c.getMemberIDFromCtx(ctx),
		RoomID:   input.RoomID,
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	c.broadcast(ctx, joinRoomResp.Broadcast)

	return nil
}

func (c controller) handleRequestSync(ctx context.Context, payload json.RawMessage) error {
	input, err := protocol.DecodeAs[protocol.SyncRequest](wsrouter.GetEventFromCtx(ctx), payload)
	if err != nil {
		return err
	}

	msg, err := c.relayService.RequestSync(ctx, &service.RequestSyncParams{
		MemberID: c.getMemberIDFromCtx(ctx),
		RoomID:   input.RoomID,
	})
	if err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}
	if msg == nil {
		return nil
	}

	return c.getPeerFromCtx(ctx).Send(msg.EventName(), msg)
}

func (c controller) handlePlay(ctx context.Context, payload json.RawMessage) error {
	input, err := protocol.DecodeAs[protocol.PlayRequest](wsrouter.GetEventFromCtx(ctx), payload)
	if err != nil {
		return err
	}

	playResp, err := c.relayService.Play(ctx, &service.PlayParams{
		MemberID: c.getMemberIDFromCtx(ctx),
		Request:  input,
	})
	if err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	c.broadcast(ctx, playResp)

	return nil
}

func (c controller) handleUpdatePlayer(ctx context.Context, payload json.RawMessage) error {
	input, err := protocol.DecodeAs[protocol.PlayerUpdate](wsrouter.GetEventFromCtx(ctx), payload)
	if err != nil {
		return err
	}

	updateResp, err := c.relayService.UpdatePlayer(ctx, &service.UpdatePlayerParams{
		MemberID: c.getMemberIDFromCtx(ctx),
		Update:   input,
	})
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	c.broadcast(ctx, updateResp)

	return nil
}

func (c controller) handleReaction(ctx context.Context, payload json.RawMessage) error {
	input, err := protocol.DecodeAs[protocol.Reaction](wsrouter.GetEventFromCtx(ctx), payload)
	if err != nil {
		return err
	}

	reactionResp, err := c.relayService.SendReaction(ctx, &service.SendReactionParams{
		MemberID: c.getMemberIDFromCtx(ctx),
		Reaction: input,
	})
	if err != nil {
		return fmt.Errorf("failed to send reaction: %w", err)
	}

	c.broadcast(ctx, reactionResp)

	return nil
}

func (c controller) handleStreamEnded(ctx context.Context, payload json.RawMessage) error {
	input, err := protocol.DecodeAs[protocol.StreamEnded](wsrouter.GetEventFromCtx(ctx), payload)
	if err != nil {
		return err
	}

	endResp, err := c.relayService.EndStream(ctx, &service.EndStreamParams{
		MemberID: c.getMemberIDFromCtx(ctx),
		RoomID:   input.RoomID,
	})
	if err != nil {
		return fmt.Errorf("failed to end stream: %w", err)
	}

	c.broadcast(ctx, endResp)

	return nil
}
