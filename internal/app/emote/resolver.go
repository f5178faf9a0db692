package emote

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

// Resolver is the emote-resolution collaborator consumed by connection sessions.
type Resolver interface {
	// VisibleTo returns the emotes the identity may use in the room
	// (global ∪ tier ∪ channel-specific).
	VisibleTo(ctx context.Context, identity user.Identity, roomID string) ([]Emote, error)
}

// Source lists emote definitions. The postgres store implements it.
type Source interface {
	FindGlobalEmotes(ctx context.Context) ([]Emote, error)
	FindChannelEmotes(ctx context.Context, channelID string) ([]Emote, error)
}

// URLSigner builds time-limited render URLs for emote images kept in private
// asset storage. The S3 asset service implements it.
type URLSigner interface {
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)
}

const (
	// cacheTTL bounds how stale a cached emote set may get. Emote rosters
	// change rarely, so a coarse TTL keeps the hot path free of lookups.
	cacheTTL = 5 * time.Minute

	// presignTTL is the validity window for presigned emote image URLs.
	presignTTL = time.Hour
)

// cacheEntry is one cached emote list with its load time.
type cacheEntry struct {
	emotes   []Emote
	loadedAt time.Time
}

// CachedResolver resolves visibility from a Source with per-scope TTL caching
// and presigns asset-backed render URLs.
type CachedResolver struct {
	source Source
	signer URLSigner

	mu       sync.Mutex
	global   cacheEntry
	channels map[string]cacheEntry

	logger zerolog.Logger
}

// NewCachedResolver builds a resolver over the given source. signer may be nil
// when all emote URLs are public.
func NewCachedResolver(source Source, signer URLSigner) *CachedResolver {
	return &CachedResolver{
		source:   source,
		signer:   signer,
		channels: make(map[string]cacheEntry),
		logger:   logx.Logger().With().Str("component", "EmoteResolver").Logger(),
	}
}

// VisibleTo returns the identity's visible emote set for the room.
// A failed source lookup degrades to the last cached set (possibly empty)
// rather than failing the send.
func (r *CachedResolver) VisibleTo(ctx context.Context, identity user.Identity, roomID string) ([]Emote, error) {
	global := r.globalSet(ctx)
	channel := r.channelSet(ctx, roomID)

	visible := make([]Emote, 0, len(global)+len(channel))
	for _, e := range global {
		if e.visibleTo(identity, roomID) {
			visible = append(visible, e)
		}
	}
	for _, e := range channel {
		if e.visibleTo(identity, roomID) {
			visible = append(visible, e)
		}
	}

	return r.withRenderURLs(ctx, visible), nil
}

// globalSet returns the cached global + tier emotes, refreshing past the TTL.
func (r *CachedResolver) globalSet(ctx context.Context) []Emote {
	r.mu.Lock()
	entry := r.global
	r.mu.Unlock()

	if !entry.loadedAt.IsZero() && time.Since(entry.loadedAt) < cacheTTL {
		return entry.emotes
	}

	emotes, err := r.source.FindGlobalEmotes(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Global emote lookup failed, serving cached set.")
		return entry.emotes
	}

	r.mu.Lock()
	r.global = cacheEntry{emotes: emotes, loadedAt: time.Now()}
	r.mu.Unlock()

	return emotes
}

// channelSet returns the cached channel emotes, refreshing past the TTL.
func (r *CachedResolver) channelSet(ctx context.Context, channelID string) []Emote {
	r.mu.Lock()
	entry, ok := r.channels[channelID]
	r.mu.Unlock()

	if ok && time.Since(entry.loadedAt) < cacheTTL {
		return entry.emotes
	}

	emotes, err := r.source.FindChannelEmotes(ctx, channelID)
	if err != nil {
		r.logger.Warn().Err(err).Str("channel_id", channelID).Msg("Channel emote lookup failed, serving cached set.")
		return entry.emotes
	}

	r.mu.Lock()
	r.channels[channelID] = cacheEntry{emotes: emotes, loadedAt: time.Now()}
	r.mu.Unlock()

	return emotes
}

// withRenderURLs fills in presigned URLs for asset-backed emotes.
func (r *CachedResolver) withRenderURLs(ctx context.Context, emotes []Emote) []Emote {
	if r.signer == nil {
		return emotes
	}

	for i := range emotes {
		if emotes[i].URL != "" || emotes[i].AssetKey == "" {
			continue
		}

		url, err := r.signer.PresignDownload(ctx, emotes[i].AssetKey, presignTTL)
		if err != nil {
			r.logger.Warn().Err(err).Str("asset_key", emotes[i].AssetKey).Msg("Emote URL presign failed.")
			continue
		}
		emotes[i].URL = url
	}

	return emotes
}
