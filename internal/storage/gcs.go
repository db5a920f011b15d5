package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStore uploads objects to a Google Cloud Storage bucket through the JSON API.
type GCSStore struct {
	objects *gcs.ObjectsService
	bucket  string
}

// NewGCS uses credentialsFile when set, otherwise application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	return &GCSStore{objects: svc.Objects, bucket: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, folder, name, contentType string, data []byte) (string, error) {
	objectName := folder + "/" + name
	obj := &gcs.Object{Name: objectName, ContentType: contentType}
	if _, err := s.objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do(); err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return gcsPublicHost + "/" + s.bucket + "/" + (&url.URL{Path: objectName}).EscapedPath(), nil
}
