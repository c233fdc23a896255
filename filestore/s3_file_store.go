package filestore

import (
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

const (
	DefaultImageBucket = "plume-post-image-output"
)

// S3ImageStore serves post images from an S3 bucket fronted by a CDN
// distribution.
type S3ImageStore struct {
	bucket    string
	svc       *s3.S3
	urlPrefix string
}

// NewS3ImageStore builds a store for the given bucket. The public URL
// prefix comes from IMAGE_CDN_PREFIX.
func NewS3ImageStore(bucket string) (*S3ImageStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
	})
	if err != nil {
		return nil, err
	}

	return &S3ImageStore{
		bucket:    bucket,
		svc:       s3.New(sess),
		urlPrefix: os.Getenv("IMAGE_CDN_PREFIX"),
	}, nil
}

func (s *S3ImageStore) GetUrlFromKey(key string) string {
	return s.urlPrefix + key
}

func (s *S3ImageStore) KeyFromUrl(url string) (string, bool) {
	if s.urlPrefix == "" || !strings.HasPrefix(url, s.urlPrefix) {
		return "", false
	}
	return strings.TrimPrefix(url, s.urlPrefix), true
}

func (s *S3ImageStore) DeleteKeys(keys []string) error {
	for _, key := range keys {
		_, err := s.svc.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return errors.Wrapf(err, "fail to delete image object %s", key)
		}
	}
	return nil
}
