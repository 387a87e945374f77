// Package storage is the object-store collaborator boundary. The API
// never proxies media bytes; clients upload and download through
// presigned URLs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/pixshare/pixshare-api/pkg/config"
)

type Presigner struct {
	cfg     config.StorageConfig
	Enabled bool
}

func NewPresigner(cfg config.StorageConfig) *Presigner {
	return &Presigner{
		cfg:     cfg,
		Enabled: cfg.S3AccessKey != "" && cfg.S3SecretKey != "",
	}
}

// RandomKey partitions media by date so bucket listings stay manageable.
func RandomKey(ownerID string) string {
	d := time.Now()
	return fmt.Sprintf("contents/%d/%02d/%02d/%s-%s", d.Year(), d.Month(), d.Day(), ownerID, uuid.NewString())
}

func (p *Presigner) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(p.cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.cfg.S3AccessKey,
			p.cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if p.cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(p.cfg.S3BaseEndpoint)
		}
	})

	return s3.NewPresignClient(client), nil
}

// PresignPut returns a presigned PUT URL the client can upload to.
func (p *Presigner) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	client, err := p.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.S3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.cfg.PresignTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignGet returns a presigned GET URL for reading stored media.
func (p *Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	client, err := p.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.cfg.PresignTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
