/*
Package chat contains the core logic of the real-time chat engine.

This file implements the slash-command grammar. A recognized command
short-circuits the message pipeline; unrecognized leading-slash text is
ordinary chat content, not an error.
*/
package chat

import (
	"regexp"
	"strings"

	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
)

// CommandName identifies a recognized slash command.
type CommandName string

const (
	CmdMe      CommandName = "me"
	CmdColor   CommandName = "color"
	CmdWhisper CommandName = "whisper"
	CmdPoll    CommandName = "poll"
)

// Command is a parsed slash command with its arguments.
type Command struct {
	Name CommandName

	// Color is the validated #RRGGBB argument of /color.
	Color string

	// WhisperTo and WhisperText carry the /whisper target and body.
	WhisperTo   string
	WhisperText string

	// PollQuestion and PollOptions carry the /poll arguments.
	PollQuestion string
	PollOptions  []string
}

// colorPattern validates the /color argument: exactly six hex digits.
var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// splitArgs tokenizes a command tail: space-delimited, with double-quoted
// segments preserved as single arguments (quotes stripped).
func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	hasToken := false

	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			hasToken = true
		case r == ' ' && !inQuotes:
			if hasToken {
				args = append(args, current.String())
				current.Reset()
				hasToken = false
			}
		default:
			current.WriteRune(r)
			hasToken = true
		}
	}

	if hasToken {
		args = append(args, current.String())
	}

	return args
}

// parseCommand attempts to interpret content as a slash command.
//
// Returns (nil, rest, true, nil) for /me, where rest is the action text that
// continues down the pipeline. Returns (cmd, "", true, nil) for commands that
// short-circuit. Returns handled=false when the leading-slash text is not a
// recognized command and must be treated as plain chat.
func parseCommand(content string, author user.Identity, authorIsMod bool) (cmd *Command, rest string, handled bool, cmdErr *errs.CustomError) {
	if !strings.HasPrefix(content, "/") {
		return nil, "", false, nil
	}

	name, tail, _ := strings.Cut(content[1:], " ")
	tail = strings.TrimSpace(tail)

	switch strings.ToLower(name) {
	case "me":
		if tail == "" {
			return nil, "", true, errs.NewError(errs.ErrInvalidArguments, "/me needs a message")
		}
		return &Command{Name: CmdMe}, tail, true, nil

	case "color":
		if author.Guest {
			return nil, "", true, errs.NewError(errs.ErrAuthRequired)
		}
		if !colorPattern.MatchString(tail) {
			return nil, "", true, errs.NewError(errs.ErrInvalidColor)
		}
		return &Command{Name: CmdColor, Color: strings.ToUpper(tail)}, "", true, nil

	case "whisper", "w":
		args := splitArgs(tail)
		if len(args) < 2 {
			return nil, "", true, errs.NewError(errs.ErrInvalidArguments, "/whisper needs a user and a message")
		}
		return &Command{
			Name:        CmdWhisper,
			WhisperTo:   args[0],
			WhisperText: strings.Join(args[1:], " "),
		}, "", true, nil

	case "poll":
		if !authorIsMod && !author.IsAdmin {
			return nil, "", true, errs.NewError(errs.ErrInsufficientPermission)
		}
		args := splitArgs(tail)
		if len(args) < 3 {
			return nil, "", true, errs.NewError(errs.ErrInvalidArguments, "/poll needs a question and at least two options")
		}
		return &Command{
			Name:         CmdPoll,
			PollQuestion: args[0],
			PollOptions:  args[1:],
		}, "", true, nil
	}

	// Unknown command: fall through to the ordinary message pipeline with the
	// original content untouched.
	return nil, "", false, nil
}
