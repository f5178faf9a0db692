/*
Package chat contains the core logic of the real-time chat engine.

This file implements the Processor, the pure content pipeline every outbound
message passes through: trim, command parse, word filters, profanity filter,
caps normalization, and emote substitution. The processor performs no I/O;
its only inputs are the raw text, the author, the room configuration, and the
emote set visible to the author at send time, which makes its output fully
deterministic.
*/
package chat

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/beech80/clipt-final--sub000/internal/app/emote"
	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/pkg/errs"
)

const (
	// capsRatio is the share of uppercase alphabetic characters above which a
	// message is lower-cased.
	capsRatio = 0.7

	// capsMinLength is the minimum message length (in runes) for caps
	// normalization to apply.
	capsMinLength = 10

	// profanityMask replaces each censored token.
	profanityMask = "****"
)

// defaultProfanity is the built-in profanity word list. Channels extend it
// with their own word filters; these are the platform-wide baseline tokens.
var defaultProfanity = []string{
	"ass", "asshole", "bastard", "bitch", "crap", "damn",
	"dick", "fuck", "piss", "shit", "slut", "whore",
}

// ResultKind distinguishes pipeline outcomes.
type ResultKind int

const (
	// KindMessage is a broadcastable chat message (text or action).
	KindMessage ResultKind = iota

	// KindCommand is a recognized command with side effects and no room broadcast.
	KindCommand
)

// ProcessInput is everything the pipeline needs for one message.
type ProcessInput struct {
	Content string
	Author  user.Identity

	// AuthorIsMod is the author's room-level moderator-or-admin status,
	// which exempts them from caps normalization and gates /poll.
	AuthorIsMod bool

	Room   *RoomConfig
	Emotes []emote.Emote
}

// ProcessResult is the pipeline output for accepted input.
type ProcessResult struct {
	Kind ResultKind

	// Command is set when Kind == KindCommand.
	Command *Command

	// MessageType is text, or action for /me messages.
	MessageType MessageType

	// Content is the post-filter raw text.
	Content string

	// RenderedContent is Content with every matched emote code replaced by
	// an opaque render token referencing the emote id.
	RenderedContent string

	// Emotes lists every matched occurrence with offsets into Content.
	Emotes []EmoteSpan

	// EmoteOnly reports whether Content consists solely of emote codes and
	// whitespace, used by the emote-only chat mode gate.
	EmoteOnly bool
}

// Processor applies the content pipeline. Safe for concurrent use.
type Processor struct {
	profanity *regexp.Regexp
}

// NewProcessor builds a processor with the default profanity list.
func NewProcessor() *Processor {
	return NewProcessorWithProfanity(defaultProfanity)
}

// NewProcessorWithProfanity builds a processor censoring the given tokens,
// matched case-insensitively on word boundaries.
func NewProcessorWithProfanity(words []string) *Processor {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}

	var re *regexp.Regexp
	if len(quoted) > 0 {
		re = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}

	return &Processor{profanity: re}
}

// Process runs the full pipeline on one message.
func (p *Processor) Process(in ProcessInput) (*ProcessResult, *errs.CustomError) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, errs.NewError(errs.ErrEmptyMessage)
	}

	msgType := TypeText

	if strings.HasPrefix(content, "/") {
		cmd, rest, handled, cmdErr := parseCommand(content, in.Author, in.AuthorIsMod)
		if cmdErr != nil {
			return nil, cmdErr
		}

		if handled {
			if cmd.Name != CmdMe {
				return &ProcessResult{Kind: KindCommand, Command: cmd}, nil
			}

			// /me continues down the pipeline as an action-type message.
			msgType = TypeAction
			content = rest
		}
	}

	content, filterErr := p.applyWordFilters(content, in.Room)
	if filterErr != nil {
		return nil, filterErr
	}

	content, profanityErr := p.applyProfanityFilter(content, in.Author, in.Room)
	if profanityErr != nil {
		return nil, profanityErr
	}

	if !in.Author.Privileged() && !in.AuthorIsMod {
		content = normalizeCaps(content)
	}

	rendered, spans, emoteOnly := resolveEmotes(content, in.Emotes)

	return &ProcessResult{
		Kind:            KindMessage,
		MessageType:     msgType,
		Content:         content,
		RenderedContent: rendered,
		Emotes:          spans,
		EmoteOnly:       emoteOnly,
	}, nil
}

// applyWordFilters runs the room's ordered filter list. The first matching
// block filter rejects; replace filters substitute in place and continue.
func (p *Processor) applyWordFilters(content string, room *RoomConfig) (string, *errs.CustomError) {
	if room == nil {
		return content, nil
	}

	for i := range room.Filters {
		f := &room.Filters[i]
		if !f.matches(content) {
			continue
		}

		if f.Action == FilterBlock {
			return "", errs.NewError(errs.ErrFilteredContent)
		}

		content = f.apply(content)
	}

	return content, nil
}

// applyProfanityFilter censors or rejects profanity. Free and guest senders
// are always checked and get rejected outright; higher tiers are censored in
// place, and only when the room opts in.
func (p *Processor) applyProfanityFilter(content string, author user.Identity, room *RoomConfig) (string, *errs.CustomError) {
	if p.profanity == nil {
		return content, nil
	}

	strict := author.Tier == user.TierFree || author.Tier == user.TierGuest
	enabled := strict || (room != nil && room.EnableProfanityFilter)
	if !enabled {
		return content, nil
	}

	if !p.profanity.MatchString(content) {
		return content, nil
	}

	if strict {
		return "", errs.NewError(errs.ErrFilteredContent)
	}

	return p.profanity.ReplaceAllString(content, profanityMask), nil
}

// normalizeCaps lower-cases shouted messages: length >= 10 runes and more
// than 70% of alphabetic characters uppercase. The message is normalized, not
// rejected.
func normalizeCaps(content string) string {
	if utf8.RuneCountInString(content) < capsMinLength {
		return content
	}

	var letters, uppers int
	for _, r := range content {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}

	if letters == 0 || float64(uppers)/float64(letters) <= capsRatio {
		return content
	}

	return strings.ToLower(content)
}

// emoteMatch is one claimed region of content during emote scanning.
type emoteMatch struct {
	start int
	end   int
	em    emote.Emote
}

// isBoundary reports whether the byte positions around [start, end) isolate a
// whole token: the adjacent runes must not be letters or digits.
func isBoundary(content string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(content[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}

	if end < len(content) {
		r, _ := utf8.DecodeRuneInString(content[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}

	return true
}

// resolveEmotes scans content for every known emote code, longest code first
// to avoid partial-match ambiguity, word-boundary matched. Every occurrence
// is recorded. The returned rendered string substitutes each match with an
// opaque render token referencing the emote id.
func resolveEmotes(content string, emotes []emote.Emote) (rendered string, spans []EmoteSpan, emoteOnly bool) {
	if len(emotes) == 0 {
		return content, nil, false
	}

	ordered := make([]emote.Emote, len(emotes))
	copy(ordered, emotes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Code) > len(ordered[j].Code)
	})

	var matches []emoteMatch
	claimed := make([]bool, len(content))

	for _, em := range ordered {
		if em.Code == "" {
			continue
		}

		for from := 0; ; {
			idx := strings.Index(content[from:], em.Code)
			if idx < 0 {
				break
			}

			start := from + idx
			end := start + len(em.Code)
			from = start + 1

			if !isBoundary(content, start, end) {
				continue
			}

			if overlapsClaimed(claimed, start, end) {
				continue
			}

			for i := start; i < end; i++ {
				claimed[i] = true
			}
			matches = append(matches, emoteMatch{start: start, end: end, em: em})
			from = end
		}
	}

	if len(matches) == 0 {
		return content, nil, false
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	var b strings.Builder
	var outside strings.Builder
	prev := 0

	spans = make([]EmoteSpan, 0, len(matches))
	for _, m := range matches {
		between := content[prev:m.start]
		b.WriteString(between)
		outside.WriteString(between)

		b.WriteString("[emote:" + m.em.ID + "]")
		spans = append(spans, EmoteSpan{
			ID:    m.em.ID,
			Code:  m.em.Code,
			Start: m.start,
			End:   m.end,
			URL:   m.em.URL,
		})

		prev = m.end
	}
	tailText := content[prev:]
	b.WriteString(tailText)
	outside.WriteString(tailText)

	emoteOnly = strings.TrimSpace(outside.String()) == ""

	return b.String(), spans, emoteOnly
}

// overlapsClaimed reports whether any byte in [start, end) is already claimed
// by a longer match.
func overlapsClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}
