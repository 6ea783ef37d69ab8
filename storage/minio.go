package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStorage struct {
	bucket  string
	client  *minio.Client
	context context.Context
}

// New connects to an S3-compatible endpoint. Empty credentials give
// anonymous access, which is enough for public release buckets.
func New(endpoint, bucket, accessKey, secretKey string) (*MinioStorage, error) {
	opts := &minio.Options{Secure: true}
	if accessKey != "" {
		opts.Creds = credentials.NewStaticV4(accessKey, secretKey, "")
	}
	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, err
	}
	return &MinioStorage{bucket: bucket, client: client, context: context.Background()}, nil
}

func (ms *MinioStorage) Exists(path string) bool {
	if _, err := ms.client.StatObject(ms.context, ms.bucket, path, minio.StatObjectOptions{}); err != nil {
		return false
	}
	return true
}

func (ms *MinioStorage) ReadFile(path string) ([]byte, error) {
	object, err := ms.client.GetObject(ms.context, ms.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

func (ms *MinioStorage) WriteFile(path string, data []byte) error {
	reader := bytes.NewReader(data)
	if _, err := ms.client.PutObject(ms.context, ms.bucket, path, reader, reader.Size(), minio.PutObjectOptions{}); err != nil {
		return err
	}
	return nil
}

func (ms *MinioStorage) Remove(name string) error {
	return ms.client.RemoveObject(ms.context, ms.bucket, name, minio.RemoveObjectOptions{})
}

func (ms *MinioStorage) Walk(root string, fn func(path string, err error) error) error {
	for object := range ms.client.ListObjects(ms.context, ms.bucket, minio.ListObjectsOptions{
		Prefix:    root,
		Recursive: true,
	}) {
		if err := fn(object.Key, object.Err); err != nil {
			return err
		}
	}
	return nil
}
