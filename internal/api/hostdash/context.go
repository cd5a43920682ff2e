package hostdash

import "context"

type contextKey string

const workspaceContextKey contextKey = "hostdash_workspace"

func ContextWithWorkspace(ctx context.Context, ws *Workspace) context.Context {
	return context.WithValue(ctx, workspaceContextKey, ws)
}

func WorkspaceFromContext(ctx context.Context) *Workspace {
	ws, _ := ctx.Value(workspaceContextKey).(*Workspace)
	return ws
}
