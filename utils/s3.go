package utils

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3-compatible object storage for contract PDFs and KYC documents. Works
// against AWS S3 or any compatible endpoint (MinIO, R2) via S3_ENDPOINT.

func getS3Config() (aws.Config, error) {
	accessKey := os.Getenv("S3_ACCESS_KEY_ID")
	secretKey := os.Getenv("S3_SECRET_ACCESS_KEY")
	region := os.Getenv("S3_REGION")
	if region == "" {
		region = "us-east-1"
	}
	if accessKey == "" || secretKey == "" {
		return aws.Config{}, fmt.Errorf("S3_ACCESS_KEY_ID or S3_SECRET_ACCESS_KEY is not set")
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load S3 config: %w", err)
	}
	return cfg, nil
}

func getS3Client() (*s3.Client, error) {
	cfg, err := getS3Config()
	if err != nil {
		return nil, err
	}
	endpoint := os.Getenv("S3_ENDPOINT")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return client, nil
}

func getS3Bucket() (string, error) {
	bucket := os.Getenv("S3_BUCKET_NAME")
	if bucket == "" {
		return "", fmt.Errorf("S3_BUCKET_NAME is not set")
	}
	return bucket, nil
}

// UploadBytes stores data under objectKey and returns the object's public URL.
// Content type falls back to the key's extension when not given.
func UploadBytes(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	bucket, err := getS3Bucket()
	if err != nil {
		return "", err
	}
	client, err := getS3Client()
	if err != nil {
		return "", err
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(objectKey))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("S3 upload failed: %w", err)
	}

	return publicObjectURL(bucket, objectKey), nil
}

// GenerateSignedURL returns a presigned GET URL for the given object.
func GenerateSignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	bucket, err := getS3Bucket()
	if err != nil {
		return "", err
	}
	client, err := getS3Client()
	if err != nil {
		return "", err
	}

	presigner := s3.NewPresignClient(client)
	presigned, err := presigner.PresignGetObject(ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(objectKey),
		},
		func(po *s3.PresignOptions) {
			po.Expires = expiry
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to presign S3 URL: %w", err)
	}
	return presigned.URL, nil
}

// DeleteObject removes an object from storage.
func DeleteObject(ctx context.Context, objectKey string) error {
	bucket, err := getS3Bucket()
	if err != nil {
		return err
	}
	client, err := getS3Client()
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("S3 delete failed: %w", err)
	}
	return nil
}

func publicObjectURL(bucket, objectKey string) string {
	if base := strings.TrimRight(os.Getenv("S3_PUBLIC_BASE_URL"), "/"); base != "" {
		return base + "/" + objectKey
	}
	if endpoint := strings.TrimRight(os.Getenv("S3_ENDPOINT"), "/"); endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", endpoint, bucket, objectKey)
	}
	region := os.Getenv("S3_REGION")
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, objectKey)
}
