package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/ContentImport/internal/core"
	appmw "github.com/JonMunkholm/ContentImport/internal/web/middleware"
)

// WithRequestMetadata adds the client address, User-Agent and, when no
// API key named one, a default actor to ctx for audit logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, appmw.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	if core.GetActorFromContext(ctx) == "" {
		ctx = core.ContextWithActor(ctx, "web")
	}
	return ctx
}
