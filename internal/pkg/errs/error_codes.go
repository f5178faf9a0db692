/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an inbound frame or request body was not valid JSON.
	ErrInvalidJSONFormat = 1002

	// ErrRateLimited indicates that the sender exhausted its token bucket.
	// Transient: the client may retry once the bucket refills.
	ErrRateLimited = 1003

	// ErrInvalidSessionState indicates an event arrived in a connection state
	// that does not accept it (e.g. a chat message before any join).
	ErrInvalidSessionState = 1004
)

// 2xxx: Room and Content Errors
const (
	// ErrRoomNotFound indicates the target room does not exist and could not be created lazily.
	ErrRoomNotFound = 2101

	// ErrAuthRequired indicates the room requires an authenticated identity to join.
	ErrAuthRequired = 2102

	// ErrSubscriptionRequired indicates the room is restricted to subscribers.
	ErrSubscriptionRequired = 2103

	// ErrEmptyMessage indicates the message content was empty after trimming.
	ErrEmptyMessage = 2201

	// ErrLengthExceeded indicates the message exceeded the sender's tier length cap.
	ErrLengthExceeded = 2202

	// ErrFilteredContent indicates a word filter or the profanity filter blocked the message.
	ErrFilteredContent = 2203

	// ErrModeViolation indicates the room's chat mode rejected the message
	// (subscriber-only, emote-only, followers-only).
	ErrModeViolation = 2204

	// ErrSlowMode indicates the sender must wait before sending again in slow mode.
	ErrSlowMode = 2205

	// ErrBannedFromRoom indicates the sender is banned from the room.
	ErrBannedFromRoom = 2206

	// ErrTimedOut indicates the sender is timed out and barred from sending until expiry.
	ErrTimedOut = 2207
)

// 3xxx: Identity, Permission, and Command Errors
const (
	// ErrAuthenticationFailed indicates a credential was present but could not be verified.
	// This is the only business error that closes the connection.
	ErrAuthenticationFailed = 3001

	// ErrInsufficientPermission indicates the actor lacks the permission required for an action.
	ErrInsufficientPermission = 3101

	// ErrCannotTargetPrivileged indicates a non-admin actor targeted a moderator or admin.
	ErrCannotTargetPrivileged = 3102

	// ErrTargetNotFound indicates the moderation target is not a known user in the room.
	ErrTargetNotFound = 3103

	// ErrInvalidArguments indicates a slash command was recognized but its arguments were malformed.
	ErrInvalidArguments = 3201

	// ErrInvalidColor indicates a /color argument was not a six-hex-digit color.
	ErrInvalidColor = 3202
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
