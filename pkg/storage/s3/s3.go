package s3

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"k8s.io/klog/v2"

	"github.com/ppc64le-cloud/dbsync/pkg/storage"
)

var _ storage.Storage = &S3{}

// S3 is a client handle bound to one set of credentials and a region.
type S3 struct {
	sess       *session.Session
	uploader   s3manageriface.UploaderAPI
	downloader s3manageriface.DownloaderAPI
}

type Credentials struct {
	Region           string `json:"region"`
	Endpoint         string `json:"endpoint"`
	Insecure         bool   `json:"insecure"`
	S3ForcePathStyle bool   `json:"s3_force_path_style"`
	AccessKey        string `json:"access_key"`
	SecretKey        string `json:"secret_key"`
}

// NewClient returns a handle for the given access key, secret and region.
// Nothing is validated here; bad credentials fail on the first transfer.
func NewClient(accessID, secretKey, region string) (*S3, error) {
	return NewSession(&Credentials{
		AccessKey: accessID,
		SecretKey: secretKey,
		Region:    region,
	})
}

// NewSession is NewClient for a full Credentials value, including the
// endpoint settings used by S3-compatible stores.
//
// Only the static keys in s3Credentials are used. There is no fallback to
// the environment, shared config or instance roles.
func NewSession(s3Credentials *Credentials) (*S3, error) {
	cfg := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(s3Credentials.AccessKey, s3Credentials.SecretKey, ""),
		DisableSSL:       aws.Bool(s3Credentials.Insecure),
		S3ForcePathStyle: aws.Bool(s3Credentials.S3ForcePathStyle),
		Region:           aws.String(s3Credentials.Region),
	}
	if s3Credentials.Endpoint != "" {
		cfg.Endpoint = aws.String(s3Credentials.Endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating S3 session: %w", err)
	}
	// NewSession fills an empty region from AWS_REGION or shared config.
	sess = sess.Copy(&aws.Config{Region: aws.String(s3Credentials.Region)})

	return &S3{
		sess:       sess,
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
	}, nil
}

// Download writes bucket/object to localPath, replacing any existing file.
// The object lands in a temporary file in the same directory first, so a
// failed download leaves localPath as it was.
func (s *S3) Download(bucket, object, localPath string) error {
	dir, base := filepath.Split(localPath)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return fmt.Errorf("failed to create a tempfile for %s: %w", localPath, err)
	}
	defer os.Remove(tmp.Name())

	n, err := s.downloader.Download(tmp, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(object),
	})
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download s3://%s/%s: %w", bucket, object, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}

	mode := os.FileMode(0o644)
	if fi, err := os.Stat(localPath); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("failed to move download into %s: %w", localPath, err)
	}
	klog.Infof("downloaded s3://%s/%s to %s, %d bytes", bucket, object, localPath, n)
	return nil
}

// Upload writes the file at localPath to bucket/object, replacing any
// existing object.
func (s *S3) Upload(localPath, bucket, object string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	result, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(object),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s/%s: %w", localPath, bucket, object, err)
	}
	klog.Infof("uploaded %s to %s", localPath, result.Location)
	return nil
}
