package services

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"authgate/internal/config"
	"authgate/internal/repository"
)

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectUploader is satisfied by *manager.Uploader.
type ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type AvatarService struct {
	users         repository.UserRepository
	uploader      ObjectUploader
	bucket        string
	publicBaseURL string
	maxBytes      int64
}

// NewAvatarService returns a service that rejects uploads when s3Config is nil.
func NewAvatarService(users repository.UserRepository, s3Config *config.S3Config, maxBytes int64) *AvatarService {
	s := &AvatarService{users: users, maxBytes: maxBytes}
	if s3Config != nil && s3Config.Client != nil {
		s.uploader = manager.NewUploader(s3Config.Client)
		s.bucket = s3Config.Bucket
		s.publicBaseURL = strings.TrimRight(s3Config.PublicBaseURL, "/")
	}
	return s
}

func (s *AvatarService) Enabled() bool {
	return s.uploader != nil
}

// Upload stores an avatar image for userID and returns its public URL.
func (s *AvatarService) Upload(ctx context.Context, userID string, r io.Reader) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageDisabled
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", oops.Code("AVATAR_READ_FAILED").With("user_id", userID).Wrap(err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrImageTooLarge
	}

	mt := mimetype.Detect(data)
	ext, ok := avatarExtensions[mt.String()]
	if !ok {
		return "", ErrUnsupportedImage
	}

	key := path.Join("avatars", userID, uuid.NewString()+ext)
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mt.String()),
	})
	if err != nil {
		return "", oops.Code("AVATAR_UPLOAD_FAILED").With("user_id", userID).With("key", key).Wrap(err)
	}

	url := s.publicBaseURL + "/" + key
	if s.publicBaseURL == "" && out != nil && out.Location != "" {
		url = out.Location
	}

	if err := s.users.UpdateImage(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}
