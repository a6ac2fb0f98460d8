package storageservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// NewStorageService builds an S3 client for any S3-compatible endpoint.
func NewStorageService(ctx context.Context, cfg StorageConfig) (*StorageService, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("missing object storage configuration")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = cfg.Endpoint
	}

	return NewWithClient(client, publicURL), nil
}

func NewWithClient(client ObjectStore, publicURL string) *StorageService {
	return &StorageService{
		client:    client,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// EnsureBuckets creates the buckets that do not exist yet.
func (s *StorageService) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{BlogImagesBucket, AvatarsBucket} {
		_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
		if err == nil {
			continue
		}

		var notFound *types.NotFound
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
		}

		_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return nil
}

// PublicURL returns the public address of an object.
func (s *StorageService) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, bucket, key)
}

// UploadCover stores a post cover image under a random name and returns its public url.
func (s *StorageService) UploadCover(ctx context.Context, up Upload) (string, error) {
	data, contentType, err := readAndValidateImage(up, MaxCoverSizeBytes)
	if err != nil {
		return "", err
	}

	key := uuid.NewString() + allowedImageTypes[contentType]

	if err := s.putObject(ctx, BlogImagesBucket, key, data, contentType, CoverCacheControl); err != nil {
		return "", err
	}

	return s.PublicURL(BlogImagesBucket, key), nil
}

// UploadAvatar normalises the image to a square JPEG stored as <user id>.jpg. The returned url
// carries a version so browsers pick up a replaced avatar.
func (s *StorageService) UploadAvatar(ctx context.Context, userID uuid.UUID, up Upload) (string, error) {
	data, _, err := readAndValidateImage(up, MaxAvatarSizeBytes)
	if err != nil {
		return "", err
	}

	jpegBytes, err := resizeToJPEG(data, AvatarSize, AvatarSize, AvatarQuality)
	if err != nil {
		return "", err
	}

	key := userID.String() + ".jpg"

	if err := s.putObject(ctx, AvatarsBucket, key, jpegBytes, ContentTypeJPEG, AvatarCacheControl); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s?v=%d", s.PublicURL(AvatarsBucket, key), time.Now().Unix()), nil
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(up Upload, maxSize int64) ([]byte, string, error) {
	if up.Body == nil {
		return nil, "", ErrEmptyUpload
	}

	if up.Size > maxSize {
		return nil, "", ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyUpload
	}
	if int64(len(data)) > maxSize {
		return nil, "", ErrFileTooLarge
	}

	// the client supplied Content-Type is ignored
	contentType := http.DetectContentType(data[:min(len(data), 512)])
	if _, ok := allowedImageTypes[contentType]; !ok {
		return nil, "", ErrInvalidImageType
	}

	return data, contentType, nil
}

func (s *StorageService) putObject(ctx context.Context, bucket, key string, body []byte, contentType, cacheControl string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to %s: %w", bucket, err)
	}
	return nil
}
