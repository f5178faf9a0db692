/*
Package handler provides HTTP handler functions for room provisioning, settings,
and history reads.
*/
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beech80/clipt-final--sub000/internal/app/chat"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
	"github.com/beech80/clipt-final--sub000/internal/pkg/req"
	"github.com/beech80/clipt-final--sub000/internal/pkg/resp"
)

type RoomInput struct {
	// ID is the room id, 1:1 with the creator's channel.
	ID string `json:"id"`

	RequiresAuth          bool              `json:"requiresAuth"`
	SubscriberOnly        bool              `json:"subscriberOnly"`
	EnableProfanityFilter bool              `json:"enableProfanityFilter"`
	Mode                  chat.ChatMode     `json:"mode,omitempty"`
	SlowDelaySeconds      int               `json:"slowDelaySeconds,omitempty"`
	Filters               []chat.WordFilter `json:"filters,omitempty"`
}

// HandleCreateRoom provisions a chat room owned by the caller.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireIdentity(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input RoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		config := &chat.RoomConfig{
			ID:                    input.ID,
			OwnerID:               identity.ID,
			RequiresAuth:          input.RequiresAuth,
			SubscriberOnly:        input.SubscriberOnly,
			EnableProfanityFilter: input.EnableProfanityFilter,
			Mode:                  input.Mode,
			SlowDelaySeconds:      input.SlowDelaySeconds,
			Filters:               input.Filters,
		}

		if createErr := deps.Manager.CreateRoom(r.Context(), config); createErr != nil {
			resp.RespondError(w, r, createErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"roomId": config.ID,
		})
	}
}

// HandleUpdateRoom replaces a room's settings. Only the owner or a platform
// admin may change them; a live room picks the new settings up immediately.
func HandleUpdateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, customErr := requireIdentity(deps, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		roomID := chi.URLParam(r, "id")
		existing, err := deps.Store.FindRoomConfig(r.Context(), roomID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if existing == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		if identity.ID != existing.OwnerID && !identity.IsAdmin {
			resp.RespondError(w, r, errs.NewError(errs.ErrInsufficientPermission))
			return
		}

		var input RoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		config := &chat.RoomConfig{
			ID:                    roomID,
			OwnerID:               existing.OwnerID,
			RequiresAuth:          input.RequiresAuth,
			SubscriberOnly:        input.SubscriberOnly,
			EnableProfanityFilter: input.EnableProfanityFilter,
			Mode:                  input.Mode,
			SlowDelaySeconds:      input.SlowDelaySeconds,
			Filters:               input.Filters,
		}

		if createErr := deps.Manager.CreateRoom(r.Context(), config); createErr != nil {
			resp.RespondError(w, r, createErr)
			return
		}

		config.CompileFilters()
		if live := deps.Manager.GetRoom(roomID); live != nil {
			live.SetConfig(config)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"roomId": config.ID,
		})
	}
}

// HandleGetRoom returns a room's configuration.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "id")

		config, err := deps.Store.FindRoomConfig(r.Context(), roomID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if config == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		resp.RespondSuccess(w, r, config)
	}
}

// HandleRoomHistory returns a room's recent messages, oldest first. Accepts
// optional limit and before (unix milliseconds) query parameters.
func HandleRoomHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "id")

		limit := chat.DefaultHistoryLimit
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil || parsed <= 0 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			if parsed > chat.MaxHistoryLimit {
				parsed = chat.MaxHistoryLimit
			}
			limit = parsed
		}

		before := time.Now()
		if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
			millis, err := strconv.ParseInt(beforeStr, 10, 64)
			if err != nil || millis <= 0 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			before = time.UnixMilli(millis)
		}

		messages, err := deps.Store.FindRecentMessages(r.Context(), roomID, limit, before)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": messages,
		})
	}
}
