/*
Package store implements durable persistence for the chat engine on
PostgreSQL.

The engine treats this layer as best-effort: the hot send path writes through
the async Batcher, and read paths (history, room config, moderation records)
run synchronously against the pool.
*/
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beech80/clipt-final--sub000/internal/app/chat"
	"github.com/beech80/clipt-final--sub000/internal/app/db"
	"github.com/beech80/clipt-final--sub000/internal/app/emote"
	"github.com/beech80/clipt-final--sub000/internal/app/user"
)

const insertMessageSQL = `
	INSERT INTO messages (id, room_id, author, type, content, rendered_content, emotes, sent_at, deleted)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING`

// Postgres persists chat records in PostgreSQL. It implements chat.Store and
// emote resolution's source interface.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps the connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// messageArgs flattens a message into the insert statement's arguments.
func messageArgs(msg chat.Message) ([]any, error) {
	author, err := json.Marshal(msg.Author)
	if err != nil {
		return nil, fmt.Errorf("marshal author: %w", err)
	}

	emotes := []byte("[]")
	if len(msg.Emotes) > 0 {
		if emotes, err = json.Marshal(msg.Emotes); err != nil {
			return nil, fmt.Errorf("marshal emotes: %w", err)
		}
	}

	return []any{
		msg.ID,
		msg.RoomID,
		author,
		string(msg.Type),
		msg.Content,
		msg.RenderedContent,
		emotes,
		time.UnixMilli(msg.Timestamp).UTC(),
		msg.Deleted,
	}, nil
}

// SaveMessage writes one message synchronously. The hot path goes through the
// Batcher instead; this exists for backfills and tests.
func (p *Postgres) SaveMessage(ctx context.Context, msg chat.Message) error {
	args, err := messageArgs(msg)
	if err != nil {
		return err
	}

	if _, err := p.pool.Exec(ctx, insertMessageSQL, args...); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// FindRecentMessages returns up to limit undeleted messages sent before the
// given instant, oldest first.
func (p *Postgres) FindRecentMessages(ctx context.Context, roomID string, limit int, before time.Time) ([]chat.Message, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, room_id, author, type, content, rendered_content, emotes, sent_at
		FROM messages
		WHERE room_id = $1 AND sent_at < $2 AND NOT deleted
		ORDER BY sent_at DESC
		LIMIT $3`,
		roomID, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var (
			msg     chat.Message
			author  []byte
			emotes  []byte
			msgType string
			sentAt  time.Time
		)
		if err := rows.Scan(&msg.ID, &msg.RoomID, &author, &msgType, &msg.Content, &msg.RenderedContent, &emotes, &sentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		if err := json.Unmarshal(author, &msg.Author); err != nil {
			return nil, fmt.Errorf("unmarshal author: %w", err)
		}
		if err := json.Unmarshal(emotes, &msg.Emotes); err != nil {
			return nil, fmt.Errorf("unmarshal emotes: %w", err)
		}

		msg.Type = chat.MessageType(msgType)
		msg.Timestamp = sentAt.UnixMilli()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Newest-first from the index, chronological for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// MarkMessageDeleted flips the message's deleted flag; the row is kept for audit.
func (p *Postgres) MarkMessageDeleted(ctx context.Context, messageID string) error {
	if _, err := p.pool.Exec(ctx, `UPDATE messages SET deleted = TRUE WHERE id = $1`, messageID); err != nil {
		return fmt.Errorf("mark message deleted: %w", err)
	}
	return nil
}

// FindRoomConfig loads a room's configuration, nil when the room is unknown.
func (p *Postgres) FindRoomConfig(ctx context.Context, roomID string) (*chat.RoomConfig, error) {
	var (
		cfg     chat.RoomConfig
		mode    string
		filters []byte
	)

	err := p.pool.QueryRow(ctx, `
		SELECT id, owner_id, requires_auth, subscriber_only, enable_profanity_filter, mode, slow_delay_seconds, filters
		FROM rooms
		WHERE id = $1`,
		roomID).Scan(&cfg.ID, &cfg.OwnerID, &cfg.RequiresAuth, &cfg.SubscriberOnly,
		&cfg.EnableProfanityFilter, &mode, &cfg.SlowDelaySeconds, &filters)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query room config: %w", err)
	}

	cfg.Mode = chat.ChatMode(mode)
	if err := json.Unmarshal(filters, &cfg.Filters); err != nil {
		return nil, fmt.Errorf("unmarshal filters: %w", err)
	}

	return &cfg, nil
}

// SaveRoomConfig upserts a room's configuration.
func (p *Postgres) SaveRoomConfig(ctx context.Context, cfg chat.RoomConfig) error {
	filters := []byte("[]")
	if len(cfg.Filters) > 0 {
		var err error
		if filters, err = json.Marshal(cfg.Filters); err != nil {
			return fmt.Errorf("marshal filters: %w", err)
		}
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO rooms (id, owner_id, requires_auth, subscriber_only, enable_profanity_filter, mode, slow_delay_seconds, filters, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			owner_id                = EXCLUDED.owner_id,
			requires_auth           = EXCLUDED.requires_auth,
			subscriber_only         = EXCLUDED.subscriber_only,
			enable_profanity_filter = EXCLUDED.enable_profanity_filter,
			mode                    = EXCLUDED.mode,
			slow_delay_seconds      = EXCLUDED.slow_delay_seconds,
			filters                 = EXCLUDED.filters,
			updated_at              = NOW()`,
		cfg.ID, cfg.OwnerID, cfg.RequiresAuth, cfg.SubscriberOnly,
		cfg.EnableProfanityFilter, string(cfg.Mode), cfg.SlowDelaySeconds, filters)
	if err != nil {
		return fmt.Errorf("upsert room config: %w", err)
	}
	return nil
}

// SaveBan upserts a ban record; a re-ban replaces the previous record.
func (p *Postgres) SaveBan(ctx context.Context, ban chat.Ban) error {
	var expiresAt *time.Time
	if !ban.ExpiresAt.IsZero() {
		t := ban.ExpiresAt.UTC()
		expiresAt = &t
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO bans (room_id, user_id, username, reason, expires_at, by_admin, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (room_id, user_id) DO UPDATE SET
			username   = EXCLUDED.username,
			reason     = EXCLUDED.reason,
			expires_at = EXCLUDED.expires_at,
			by_admin   = EXCLUDED.by_admin,
			created_by = EXCLUDED.created_by,
			created_at = EXCLUDED.created_at`,
		ban.RoomID, ban.UserID, ban.Username, ban.Reason, expiresAt, ban.ByAdmin, ban.CreatedBy, ban.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert ban: %w", err)
	}
	return nil
}

// DeleteBan removes a ban record; deleting a missing record is not an error.
func (p *Postgres) DeleteBan(ctx context.Context, roomID, userID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM bans WHERE room_id = $1 AND user_id = $2`, roomID, userID); err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	return nil
}

// FindBans lists the room's ban records, expired ones included; the caller
// filters by activity.
func (p *Postgres) FindBans(ctx context.Context, roomID string) ([]chat.Ban, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT room_id, user_id, username, reason, expires_at, by_admin, created_by, created_at
		FROM bans
		WHERE room_id = $1`,
		roomID)
	if err != nil {
		return nil, fmt.Errorf("query bans: %w", err)
	}
	defer rows.Close()

	var bans []chat.Ban
	for rows.Next() {
		var (
			ban       chat.Ban
			expiresAt *time.Time
		)
		if err := rows.Scan(&ban.RoomID, &ban.UserID, &ban.Username, &ban.Reason, &expiresAt, &ban.ByAdmin, &ban.CreatedBy, &ban.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		if expiresAt != nil {
			ban.ExpiresAt = *expiresAt
		}
		bans = append(bans, ban)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bans: %w", err)
	}

	return bans, nil
}

// SaveModerator upserts a roster entry.
func (p *Postgres) SaveModerator(ctx context.Context, mod chat.Moderator) error {
	perms, err := json.Marshal(mod.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO moderators (room_id, user_id, username, permissions, added_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (room_id, user_id) DO UPDATE SET
			username    = EXCLUDED.username,
			permissions = EXCLUDED.permissions,
			added_by    = EXCLUDED.added_by`,
		mod.RoomID, mod.UserID, mod.Username, perms, mod.AddedBy)
	if err != nil {
		return fmt.Errorf("upsert moderator: %w", err)
	}
	return nil
}

// DeleteModerator drops a roster entry; idempotent.
func (p *Postgres) DeleteModerator(ctx context.Context, roomID, userID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM moderators WHERE room_id = $1 AND user_id = $2`, roomID, userID); err != nil {
		return fmt.Errorf("delete moderator: %w", err)
	}
	return nil
}

// FindModerators lists the room's roster.
func (p *Postgres) FindModerators(ctx context.Context, roomID string) ([]chat.Moderator, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT room_id, user_id, username, permissions, added_by
		FROM moderators
		WHERE room_id = $1`,
		roomID)
	if err != nil {
		return nil, fmt.Errorf("query moderators: %w", err)
	}
	defer rows.Close()

	var mods []chat.Moderator
	for rows.Next() {
		var (
			mod   chat.Moderator
			perms []byte
		)
		if err := rows.Scan(&mod.RoomID, &mod.UserID, &mod.Username, &perms, &mod.AddedBy); err != nil {
			return nil, fmt.Errorf("scan moderator: %w", err)
		}
		if err := json.Unmarshal(perms, &mod.Permissions); err != nil {
			return nil, fmt.Errorf("unmarshal permissions: %w", err)
		}
		mods = append(mods, mod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderators: %w", err)
	}

	return mods, nil
}

// FindGlobalEmotes lists globally visible and tier-unlocked emotes.
func (p *Postgres) FindGlobalEmotes(ctx context.Context) ([]emote.Emote, error) {
	return p.queryEmotes(ctx, `
		SELECT id, code, url, asset_key, scope, tier, channel_id
		FROM emotes
		WHERE scope IN ('global', 'tier')`)
}

// FindChannelEmotes lists one channel's emotes.
func (p *Postgres) FindChannelEmotes(ctx context.Context, channelID string) ([]emote.Emote, error) {
	return p.queryEmotes(ctx, `
		SELECT id, code, url, asset_key, scope, tier, channel_id
		FROM emotes
		WHERE scope = 'channel' AND channel_id = $1`,
		channelID)
}

// SaveEmote upserts an emote definition.
func (p *Postgres) SaveEmote(ctx context.Context, e emote.Emote) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO emotes (id, code, url, asset_key, scope, tier, channel_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			code      = EXCLUDED.code,
			url       = EXCLUDED.url,
			asset_key = EXCLUDED.asset_key,
			scope     = EXCLUDED.scope,
			tier      = EXCLUDED.tier`,
		e.ID, e.Code, e.URL, e.AssetKey, string(e.Scope), string(e.Tier), e.ChannelID)
	if err != nil {
		return fmt.Errorf("upsert emote: %w", err)
	}
	return nil
}

func (p *Postgres) queryEmotes(ctx context.Context, sql string, args ...any) ([]emote.Emote, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query emotes: %w", err)
	}
	defer rows.Close()

	var emotes []emote.Emote
	for rows.Next() {
		var (
			e     emote.Emote
			scope string
			tier  string
		)
		if err := rows.Scan(&e.ID, &e.Code, &e.URL, &e.AssetKey, &scope, &tier, &e.ChannelID); err != nil {
			return nil, fmt.Errorf("scan emote: %w", err)
		}
		e.Scope = emote.Scope(scope)
		e.Tier = user.Tier(tier)
		emotes = append(emotes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emotes: %w", err)
	}

	return emotes, nil
}
