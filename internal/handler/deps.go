package handler

import (
	"net/http"
	"strings"

	"github.com/beech80/clipt-final--sub000/internal/app/chat"
	"github.com/beech80/clipt-final--sub000/internal/app/storage"
	"github.com/beech80/clipt-final--sub000/internal/app/store"
	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/configs"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
)

type AppDeps struct {
	Config   *configs.AppConfig
	Manager  *chat.Manager
	Sessions *chat.SessionDeps
	Store    *store.Postgres
	Verifier user.Verifier

	// Assets is nil when S3 storage is not configured; emote upload endpoints
	// then respond with an error.
	Assets storage.AssetStore
}

// bearerToken extracts the credential from the Authorization header, falling
// back to the token query parameter for WebSocket clients that cannot set
// headers.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// requireIdentity verifies the request's credential. Endpoints that admit
// guests handle the missing-credential case themselves.
func requireIdentity(deps *AppDeps, r *http.Request) (user.Identity, *errs.CustomError) {
	token := bearerToken(r)
	if token == "" {
		return user.Identity{}, errs.NewError(errs.ErrAuthRequired)
	}
	return deps.Verifier.Verify(token)
}
