package chat

import (
	"reflect"
	"testing"

	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
)

func TestSplitArgs(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"one", []string{"one"}},
		{"one two  three", []string{"one", "two", "three"}},
		{`"quoted arg" solo`, []string{"quoted arg", "solo"}},
		{`a "b c" d`, []string{"a", "b c", "d"}},
		{`""`, []string{""}},
	}

	for _, tc := range cases {
		got := splitArgs(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitArgs(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestParseCommandColor(t *testing.T) {
	member := user.Identity{ID: "u1", Username: "viewer", Tier: user.TierFree}

	cmd, _, handled, cmdErr := parseCommand("/color #ff00aa", member, false)
	if !handled || cmdErr != nil {
		t.Fatalf("expected success, got handled=%v err=%v", handled, cmdErr)
	}
	if cmd.Name != CmdColor || cmd.Color != "#FF00AA" {
		t.Fatalf("expected normalized color command, got %+v", cmd)
	}
}

func TestParseCommandColorRejectsGuests(t *testing.T) {
	guest := user.Identity{Username: "guest_abc", Tier: user.TierGuest, Guest: true}

	_, _, handled, cmdErr := parseCommand("/color #FF00AA", guest, false)
	if !handled || cmdErr == nil || cmdErr.Code != errs.ErrAuthRequired {
		t.Fatalf("expected auth required, got handled=%v err=%v", handled, cmdErr)
	}
}

func TestParseCommandColorValidatesFormat(t *testing.T) {
	member := user.Identity{ID: "u1", Username: "viewer", Tier: user.TierFree}

	for _, bad := range []string{"", "red", "#FFF", "#GGGGGG", "FF00AA", "#FF00AA extra"} {
		_, _, handled, cmdErr := parseCommand("/color "+bad, member, false)
		if !handled || cmdErr == nil || cmdErr.Code != errs.ErrInvalidColor {
			t.Fatalf("color %q: expected invalid color, got handled=%v err=%v", bad, handled, cmdErr)
		}
	}
}

func TestParseCommandWhisper(t *testing.T) {
	member := user.Identity{ID: "u1", Username: "viewer", Tier: user.TierFree}

	cmd, _, handled, cmdErr := parseCommand("/w target hello over there", member, false)
	if !handled || cmdErr != nil {
		t.Fatalf("expected success, got handled=%v err=%v", handled, cmdErr)
	}
	if cmd.Name != CmdWhisper || cmd.WhisperTo != "target" || cmd.WhisperText != "hello over there" {
		t.Fatalf("unexpected whisper command: %+v", cmd)
	}

	_, _, handled, cmdErr = parseCommand("/whisper target", member, false)
	if !handled || cmdErr == nil || cmdErr.Code != errs.ErrInvalidArguments {
		t.Fatalf("expected invalid arguments for missing body, got %v", cmdErr)
	}
}

func TestParseCommandPollRequiresModerator(t *testing.T) {
	member := user.Identity{ID: "u1", Username: "viewer", Tier: user.TierPremium}

	_, _, handled, cmdErr := parseCommand(`/poll "Best map?" A B`, member, false)
	if !handled || cmdErr == nil || cmdErr.Code != errs.ErrInsufficientPermission {
		t.Fatalf("expected permission error, got handled=%v err=%v", handled, cmdErr)
	}

	cmd, _, handled, cmdErr := parseCommand(`/poll "Best map?" A B`, member, true)
	if !handled || cmdErr != nil {
		t.Fatalf("expected success for moderator, got %v", cmdErr)
	}
	if cmd.PollQuestion != "Best map?" || len(cmd.PollOptions) != 2 {
		t.Fatalf("unexpected poll command: %+v", cmd)
	}
}

func TestParseCommandPollRequiresTwoOptions(t *testing.T) {
	admin := user.Identity{ID: "a1", Username: "admin", IsAdmin: true}

	_, _, _, cmdErr := parseCommand(`/poll "Question?" OnlyOne`, admin, false)
	if cmdErr == nil || cmdErr.Code != errs.ErrInvalidArguments {
		t.Fatalf("expected invalid arguments, got %v", cmdErr)
	}
}

func TestParseCommandMeRequiresText(t *testing.T) {
	member := user.Identity{ID: "u1", Username: "viewer"}

	_, _, _, cmdErr := parseCommand("/me", member, false)
	if cmdErr == nil || cmdErr.Code != errs.ErrInvalidArguments {
		t.Fatalf("expected invalid arguments for bare /me, got %v", cmdErr)
	}
}

func TestParseCommandCaseInsensitiveName(t *testing.T) {
	member := user.Identity{ID: "u1", Username: "viewer"}

	_, rest, handled, cmdErr := parseCommand("/ME does a flip", member, false)
	if !handled || cmdErr != nil || rest != "does a flip" {
		t.Fatalf("expected /ME handled as /me, got handled=%v rest=%q err=%v", handled, rest, cmdErr)
	}
}
