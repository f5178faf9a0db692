/*
Package handler provides HTTP handler functions for channel emote management.

Emote images never pass through the server: creation registers the emote and
hands the client a presigned upload URL for the image bytes.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/beech80/clipt-final--sub000/internal/app/emote"
	"github.com/beech80/clipt-final--sub000/internal/app/storage"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
	"github.com/beech80/clipt-final--sub000/internal/pkg/req"
	"github.com/beech80/clipt-final--sub000/internal/pkg/resp"
)

// uploadURLTTL is the validity window for presigned emote upload URLs.
const uploadURLTTL = 10 * time.Minute

type CreateEmoteInput struct {
	ChannelID string `json:"channelId"`
	Code      string `json:"code"`
	MimeType  string `json:"mimeType"`
	FileSize  int64  `json:"fileSize"`
}

// HandleCreateEmote registers a channel emote and returns a presigned URL for
// uploading its image. Only the channel owner or a platform admin may add
// emotes to a channel.
func HandleCreateEmote(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Assets == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		identity, customErr := requireIdentity(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input CreateEmoteInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.ChannelID == "" || input.Code == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if identity.ID != input.ChannelID && !identity.IsAdmin {
			resp.RespondError(w, r, errs.NewError(errs.ErrInsufficientPermission))
			return
		}

		ext, err := storage.ValidateEmoteImage(input.MimeType, input.FileSize)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		emoteID := uuid.NewString()
		key := storage.EmoteKey(input.ChannelID, emoteID, ext)

		uploadURL, err := deps.Assets.PresignUpload(r.Context(), key, input.MimeType, input.FileSize, uploadURLTTL)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		saved := emote.Emote{
			ID:        emoteID,
			Code:      input.Code,
			AssetKey:  key,
			Scope:     emote.ScopeChannel,
			ChannelID: input.ChannelID,
		}
		if err := deps.Store.SaveEmote(r.Context(), saved); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"emoteId":   emoteID,
			"assetKey":  key,
			"uploadUrl": uploadURL,
		})
	}
}
