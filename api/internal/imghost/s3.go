// Package imghost turns a base64 image into a durable public URL. How the
// hosting works internally is not this application's concern; the routes only
// need Upload.
package imghost

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"calorie-lens/api/internal/util"
)

type Uploader interface {
	Upload(ctx context.Context, base64Image string) (string, error)
}

// S3Uploader stores photos under a uuid key and serves them through
// CloudFront when a distribution URL is configured.
type S3Uploader struct {
	client  *s3.Client
	bucket  string
	baseURL string
	region  string
}

func NewS3(ctx context.Context, bucket, region, baseURL string) (*S3Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is empty")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Uploader{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		region:  region,
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, base64Image string) (string, error) {
	data, hint, err := util.DecodeBase64Image(base64Image)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	contentType := util.PickMIME(hint, data)

	key := fmt.Sprintf("food-photos/%s%s", uuid.NewString(), extensionFor(contentType))

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	if u.baseURL != "" {
		return u.baseURL + "/" + key, nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 {
		return "." + parts[1]
	}
	return ".bin"
}
