package storageservice

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	BlogImagesBucket = "blog-images"
	AvatarsBucket    = "avatars"

	MaxCoverSizeBytes  int64 = 5 << 20
	MaxAvatarSizeBytes int64 = 2 << 20

	AvatarSize         = 256
	AvatarQuality      = 85
	ContentTypeJPEG    = "image/jpeg"
	AvatarCacheControl = "public, max-age=300"
	CoverCacheControl  = "public, max-age=31536000, immutable"
)

var (
	ErrFileTooLarge     = errors.New("file is too large")
	ErrInvalidImageType = errors.New("file must be a jpeg, png, gif or webp image")
	ErrEmptyUpload      = errors.New("you must select an image to upload")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectStore is the subset of the S3 client the service uses.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

type StorageService struct {
	client    ObjectStore
	publicURL string
}

type StorageConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// Upload is an image received from a form.
type Upload struct {
	Body io.Reader
	Size int64
}
