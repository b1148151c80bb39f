// Package storage keeps note attachments in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/casefile/internal/netx"
	sc "github.com/dmitrijs2005/casefile/internal/server/config"
)

const presignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	uploadToURL = netx.UploadToPresignedURL
)

// AttachmentStore stores uploaded files and returns the object key.
type AttachmentStore interface {
	Put(ctx context.Context, userID int64, fileName, contentType string, data []byte) (string, error)
}

// S3Store uploads through a short-lived presigned PUT, so MinIO and AWS
// behave the same.
type S3Store struct {
	config *sc.Config
	http   *http.Client
	now    func() time.Time
}

func NewS3Store(config *sc.Config) *S3Store {
	return &S3Store{
		config: config,
		http:   &http.Client{Timeout: time.Minute},
		now:    time.Now,
	}
}

// NewKey builds users/{id}/{yyyy}/{mm}/{dd}/{uuid}{ext}.
func NewKey(userID int64, fileName string, at time.Time) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("users/%d/%d/%02d/%02d/%s%s", userID, at.Year(), int(at.Month()), at.Day(), uuid.New(), ext)
}

func (s *S3Store) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

func (s *S3Store) Put(ctx context.Context, userID int64, fileName, contentType string, data []byte) (string, error) {
	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 config: %w", err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	bucket := s.config.S3Bucket
	key := NewKey(userID, fileName, s.now())

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}

	if err := uploadToURL(ctx, s.http, req.URL, contentType, data); err != nil {
		return "", err
	}
	return key, nil
}
