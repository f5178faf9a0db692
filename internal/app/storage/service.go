/*
Package storage holds channel-uploaded emote images in S3-compatible object
storage.

Uploads and downloads never pass through the chat server: handlers issue
presigned URLs and clients talk to the bucket directly.
*/
package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// AssetStore is the emote image storage surface.
type AssetStore interface {
	// PresignUpload generates a pre-signed URL for uploading an emote image.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload generates a pre-signed URL for rendering a stored image.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Upload writes an image from the server side. Used by the seeding tool.
	Upload(ctx context.Context, key, mimeType string, body io.Reader) error

	// Delete removes the image at the given key.
	Delete(ctx context.Context, key string) error
}

// NewAssetStore is the factory function for AssetStore.
// Only S3-compatible implementations are supported.
func NewAssetStore(cfg ServiceConfig) (AssetStore, error) {
	return newS3Client(cfg)
}

// MaxEmoteImageBytes caps an emote image upload.
const MaxEmoteImageBytes = 256 * 1024

// imageExtensions maps the accepted emote image MIME types to their object key extension.
var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ValidateEmoteImage checks the upload's MIME type and size, returning the
// key extension for accepted types.
func ValidateEmoteImage(mimeType string, fileSize int64) (string, error) {
	ext, ok := imageExtensions[mimeType]
	if !ok {
		return "", fmt.Errorf("unsupported emote image type %q", mimeType)
	}
	if fileSize <= 0 || fileSize > MaxEmoteImageBytes {
		return "", fmt.Errorf("emote image size %d out of range", fileSize)
	}
	return ext, nil
}

// EmoteKey builds the object key for a channel emote image.
func EmoteKey(channelID, emoteID, ext string) string {
	return fmt.Sprintf("emotes/%s/%s.%s", channelID, emoteID, ext)
}
