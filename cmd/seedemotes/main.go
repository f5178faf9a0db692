/*
Package main is the emote pack seeding tool.

It uploads a directory of emote images to asset storage and registers them in
the emotes table. Image files are named <code>.<ext>; the file name becomes
the emote code. Used for provisioning the global and tier emote packs.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beech80/clipt-final--sub000/internal/app/db"
	"github.com/beech80/clipt-final--sub000/internal/app/emote"
	"github.com/beech80/clipt-final--sub000/internal/app/storage"
	"github.com/beech80/clipt-final--sub000/internal/app/store"
	"github.com/beech80/clipt-final--sub000/internal/app/user"
	"github.com/beech80/clipt-final--sub000/internal/configs"
	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

var mimeTypes = map[string]string{
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func main() {
	dir := flag.String("dir", "", "directory of emote images to upload")
	scope := flag.String("scope", "global", "emote scope: global or tier")
	tier := flag.String("tier", "", "unlock tier for scope=tier packs")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: seedemotes -dir <path> [-scope global|tier] [-tier basic|premium|annual]")
		os.Exit(1)
	}

	emoteScope := emote.Scope(*scope)
	if emoteScope != emote.ScopeGlobal && emoteScope != emote.ScopeTier {
		fmt.Fprintf(os.Stderr, "FATAL: unsupported scope %q\n", *scope)
		os.Exit(1)
	}
	if emoteScope == emote.ScopeTier && *tier == "" {
		fmt.Fprintln(os.Stderr, "FATAL: -tier is required when scope=tier")
		os.Exit(1)
	}

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.S3Enabled() {
		fmt.Fprintln(os.Stderr, "FATAL: S3 storage must be configured to seed emote packs")
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")

	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	assets, err := storage.NewAssetStore(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize emote asset storage")
	}

	postgres := store.NewPostgres(pool)

	entries, err := os.ReadDir(*dir)
	if err != nil {
		logx.Fatal(err, "Failed to read emote pack directory")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	seeded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		mimeType, ok := mimeTypes[ext]
		if !ok {
			logx.Warn("Skipping file with unsupported extension", "file", entry.Name())
			continue
		}

		code := strings.TrimSuffix(entry.Name(), ext)
		emoteID := uuid.NewString()
		key := storage.EmoteKey("_pack", emoteID, strings.TrimPrefix(ext, "."))

		f, err := os.Open(filepath.Join(*dir, entry.Name()))
		if err != nil {
			logx.Error(err, "Failed to open emote image", "file", entry.Name())
			continue
		}

		uploadErr := assets.Upload(ctx, key, mimeType, f)
		f.Close()
		if uploadErr != nil {
			logx.Error(uploadErr, "Failed to upload emote image", "file", entry.Name())
			continue
		}

		saved := emote.Emote{
			ID:       emoteID,
			Code:     code,
			AssetKey: key,
			Scope:    emoteScope,
			Tier:     user.Tier(*tier),
		}
		if err := postgres.SaveEmote(ctx, saved); err != nil {
			logx.Error(err, "Failed to register emote", "code", code)
			continue
		}

		seeded++
		logx.Info("Emote seeded", "code", code, "key", key)
	}

	logx.Info("Emote pack seeding finished", "seeded", seeded, "total", len(entries))
}
