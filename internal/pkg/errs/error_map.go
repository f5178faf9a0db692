/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses, websocket error events, and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:       {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrInvalidJSONFormat:   {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrRateLimited:         {Code: ErrRateLimited, Message: "You're sending messages too fast. Slow down.", Status: http.StatusTooManyRequests},
	ErrInvalidSessionState: {Code: ErrInvalidSessionState, Message: "That action isn't available right now."},

	// 2xxx: Room and Content Errors
	ErrRoomNotFound:         {Code: ErrRoomNotFound, Message: "Chat room not found.", Status: http.StatusNotFound},
	ErrAuthRequired:         {Code: ErrAuthRequired, Message: "Sign in to join this chat.", Status: http.StatusUnauthorized},
	ErrSubscriptionRequired: {Code: ErrSubscriptionRequired, Message: "This chat is for subscribers only.", Status: http.StatusForbidden},
	ErrEmptyMessage:         {Code: ErrEmptyMessage, Message: "Message is empty."},
	ErrLengthExceeded:       {Code: ErrLengthExceeded, Message: "Message is too long (max %d characters for your tier)."},
	ErrFilteredContent:      {Code: ErrFilteredContent, Message: "Your message was blocked by this channel's filters."},
	ErrModeViolation:        {Code: ErrModeViolation, Message: "Your message doesn't meet this chat's current mode (%s)."},
	ErrSlowMode:             {Code: ErrSlowMode, Message: "Slow mode is on. Try again in %d seconds."},
	ErrBannedFromRoom:       {Code: ErrBannedFromRoom, Message: "You are banned from this chat."},
	ErrTimedOut:             {Code: ErrTimedOut, Message: "You are timed out for %d more seconds."},

	// 3xxx: Identity, Permission, and Command Errors
	ErrAuthenticationFailed:   {Code: ErrAuthenticationFailed, Message: "Authentication failed.", Status: http.StatusUnauthorized},
	ErrInsufficientPermission: {Code: ErrInsufficientPermission, Message: "You don't have permission to do that.", Status: http.StatusForbidden},
	ErrCannotTargetPrivileged: {Code: ErrCannotTargetPrivileged, Message: "Moderators and admins can only be targeted by an admin.", Status: http.StatusForbidden},
	ErrTargetNotFound:         {Code: ErrTargetNotFound, Message: "User not found in this chat.", Status: http.StatusNotFound},
	ErrInvalidArguments:       {Code: ErrInvalidArguments, Message: "Invalid command arguments: %s"},
	ErrInvalidColor:           {Code: ErrInvalidColor, Message: "Color must look like #1A2B3C."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
