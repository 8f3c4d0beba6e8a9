// Package blob stores uploaded files outside of the database, currently
// the bootcamp photos. There are two possible backends: a local file system
// and AWS S3.
package blob

import "context"

// Driver defines the interface for the blob store
type Driver interface {
	Put(ctx context.Context, key string, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// DriverType represents the different types of blob drivers
type DriverType string

// DriverTypeLocal is the local filesystem implementation of the blob store
const DriverTypeLocal DriverType = "Local"

// DriverTypeAWSS3 is the AWS S3 implementation of the blob store
const DriverTypeAWSS3 DriverType = "AWSS3"

// None is used when there is no blob store
const None DriverType = ""

// Configuration contains the configuration for the blob store
type Configuration struct {
	DriverType         DriverType
	LocalConfiguration *LocalConfiguration
	S3Configuration    *S3Configuration
}

// LocalConfiguration contains the configuration for the local filesystem store
type LocalConfiguration struct {
	BasePath string
}

// S3Configuration contains the configuration for the S3 store
type S3Configuration struct {
	AWSRegion     string
	AWSBucketName string
	AccessID      string
	AccessKey     string
	KeyPrefix     string
}
