package controller

import "context"

type contextKey int

const (
	peerCtxKey contextKey = iota
	memberIDCtxKey
)

func (c controller) withPeer(ctx context.Context, p *peer, memberID string) context.Context {
	ctx = context.WithValue(ctx, peerCtxKey, p)
	return context.WithValue(ctx, memberIDCtxKey, memberID)
}

func (c controller) getPeerFromCtx(ctx context.Context) *peer {
	p, _ := ctx.Value(peerCtxKey).(*peer)
	return p
}

func (c controller) getMemberIDFromCtx(ctx context.Context) string {
	memberID, ok := ctx.Value(memberIDCtxKey).(string)
	if !ok {
		return ""
	}

	return memberID
}
