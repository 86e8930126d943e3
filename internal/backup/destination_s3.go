package backup

import (
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	awssession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/minemanage/minemanage/internal/config"
)

// S3Destination replicates archives into an S3 bucket or S3-compatible
// store such as MinIO.
type S3Destination struct {
	settings config.DestinationSettings
	uploader *s3manager.Uploader
}

// NewS3Destination creates an S3 replication destination.
func NewS3Destination(settings config.DestinationSettings) (*S3Destination, error) {
	awsConfig := &aws.Config{
		Region: aws.String(settings.S3Region),
	}
	if settings.S3AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			settings.S3AccessKey, settings.S3SecretKey, "")
	}
	// Path-style addressing for MinIO and other compatible endpoints.
	if settings.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(settings.S3Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := awssession.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Destination{
		settings: settings,
		uploader: s3manager.NewUploaderWithClient(s3.New(sess)),
	}, nil
}

// Upload streams the archive to the bucket. s3manager handles multipart
// uploads, so large archives never need to fit in memory.
func (sd *S3Destination) Upload(filename string, r io.Reader, sizeBytes int64) error {
	key := path.Join(sd.settings.Path, filename)
	_, err := sd.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(sd.settings.S3Bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", sd.settings.S3Bucket, key, err)
	}
	return nil
}

// Type returns the destination type.
func (sd *S3Destination) Type() string {
	return "s3"
}
