package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"registration/internal/registration"
)

// S3Config configures an S3-compatible bucket (AWS, R2, MinIO).
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	Prefix          string
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store puts screenshots into a bucket.
type S3Store struct {
	api           objectAPI
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewS3Store builds an S3 client from cfg. Static credentials are used when
// given, otherwise the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	sdkCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load sdk config: %w", err)
	}
	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg), nil
}

func newS3Store(api objectAPI, cfg S3Config) *S3Store {
	return &S3Store{
		api:           api,
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		publicBaseURL: cfg.PublicBaseURL,
	}
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Store) Save(ctx context.Context, att *registration.Attachment) (registration.PaymentProof, error) {
	name := UniqueName(att)
	key := s.key(name)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(att.Data),
		ContentType:   aws.String(att.ContentType),
		ContentLength: aws.Int64(att.Size()),
	})
	if err != nil {
		return registration.PaymentProof{}, fmt.Errorf("s3: put %s: %w", key, err)
	}
	return registration.PaymentProof{
		Filename:     name,
		OriginalName: att.OriginalName,
		Location:     s.location(key),
		ContentType:  att.ContentType,
		Size:         att.Size(),
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, proof registration.PaymentProof) error {
	key := s.key(proof.Filename)
	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3: delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) location(key string) string {
	if s.publicBaseURL == "" {
		return "s3://" + s.bucket + "/" + key
	}
	u, err := url.JoinPath(s.publicBaseURL, key)
	if err != nil {
		return "s3://" + s.bucket + "/" + key
	}
	return u
}
