package blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/relabs-tech/campdir/core/logger"
)

// S3 is the implementation of the blob Driver for AWS S3
type S3 struct {
	config      aws.Config
	bucket      string
	baseKeyName string
}

// NewS3 returns a new S3 driver
func NewS3(blobConfig S3Configuration) (*S3, error) {
	if blobConfig.AWSBucketName == "" {
		return nil, fmt.Errorf("AWSBucketName must not be empty")
	}

	config, err := awsconfig.LoadDefaultConfig(
		context.TODO(),
		awsconfig.WithRegion(blobConfig.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(blobConfig.AccessID, blobConfig.AccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	logger.Default().Debugln("blob S3 enabled")
	return &S3{config, blobConfig.AWSBucketName, blobConfig.KeyPrefix}, nil
}

// Put uploads data under the key file
func (s S3) Put(ctx context.Context, key string, contentType string, data []byte) error {
	logger.FromContext(ctx).Infoln("uploading ", s.baseKeyName+key)
	client := s3.NewFromConfig(s.config)
	uploader := manager.NewUploader(client)

	fullKey := s.baseKeyName + key
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &fullKey,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		logger.FromContext(ctx).Error("could not upload ", fullKey)
		return err
	}
	return nil
}

// Delete deletes the key file
func (s S3) Delete(ctx context.Context, key string) error {
	logger.FromContext(ctx).Infoln("deleting ", s.baseKeyName+key)
	client := s3.NewFromConfig(s.config)

	fullKey := s.baseKeyName + key
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &fullKey,
	})
	if err != nil {
		logger.FromContext(ctx).Error("could not delete ", fullKey)
		return err
	}
	return nil
}

// NewDriver creates the configured blob driver, or nil if blob storage is
// not configured.
func NewDriver(c Configuration) (Driver, error) {
	switch c.DriverType {
	case DriverTypeLocal:
		if c.LocalConfiguration == nil {
			return nil, fmt.Errorf("missing local configuration")
		}
		return NewLocalFilesystem(c.LocalConfiguration.BasePath)
	case DriverTypeAWSS3:
		if c.S3Configuration == nil {
			return nil, fmt.Errorf("missing S3 configuration")
		}
		return NewS3(*c.S3Configuration)
	case None:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown blob driver type '%s'", c.DriverType)
}
