package blobstore

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioAPI narrows minio-go to the calls MinioStore makes. It is satisfied
// by minioCore in production and by fakes in tests.
type minioAPI interface {
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	GetObjectRange(ctx context.Context, bucket, key string, offset, length int64) ([]byte, error)
	RemoveObject(ctx context.Context, bucket, key string) error
	StatObject(ctx context.Context, bucket, key string) (minio.ObjectInfo, error)
	NewMultipartUpload(ctx context.Context, bucket, key, contentType string) (string, error)
	PutObjectPart(ctx context.Context, bucket, key, uploadID string, number int, data []byte) (string, error)
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []minio.CompletePart) error
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket, region string) error
}

type minioCore struct {
	core *minio.Core
}

func (m minioCore) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := m.core.Client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m minioCore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.core.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	// minio reports a missing key on the first read, not on GetObject.
	return io.ReadAll(obj)
}

func (m minioCore) GetObjectRange(ctx context.Context, bucket, key string, offset, length int64) ([]byte, error) {
	var opts minio.GetObjectOptions
	if err := opts.SetRange(offset, offset+length-1); err != nil {
		return nil, err
	}
	obj, err := m.core.Client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (m minioCore) RemoveObject(ctx context.Context, bucket, key string) error {
	return m.core.Client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

func (m minioCore) StatObject(ctx context.Context, bucket, key string) (minio.ObjectInfo, error) {
	return m.core.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
}

func (m minioCore) NewMultipartUpload(ctx context.Context, bucket, key, contentType string) (string, error) {
	return m.core.NewMultipartUpload(ctx, bucket, key, minio.PutObjectOptions{ContentType: contentType})
}

func (m minioCore) PutObjectPart(ctx context.Context, bucket, key, uploadID string, number int, data []byte) (string, error) {
	part, err := m.core.PutObjectPart(ctx, bucket, key, uploadID, number, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectPartOptions{})
	if err != nil {
		return "", err
	}
	return part.ETag, nil
}

func (m minioCore) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []minio.CompletePart) error {
	_, err := m.core.CompleteMultipartUpload(ctx, bucket, key, uploadID, parts, minio.PutObjectOptions{})
	return err
}

func (m minioCore) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	return m.core.AbortMultipartUpload(ctx, bucket, key, uploadID)
}

func (m minioCore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.core.Client.BucketExists(ctx, bucket)
}

func (m minioCore) MakeBucket(ctx context.Context, bucket, region string) error {
	return m.core.Client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

// MinioConfig holds connection settings for a MinIO server.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Region    string
	Bucket    string
}

// MinioStore is a Store backed by minio-go.
type MinioStore struct {
	api    minioAPI
	bucket string
	region string
}

var newMinioCore = func(endpoint string, opts *minio.Options) (*minio.Core, error) {
	return minio.NewCore(endpoint, opts)
}

func NewMinioStore(c MinioConfig) (*MinioStore, error) {
	core, err := newMinioCore(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.Secure,
		Region: c.Region,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{api: minioCore{core: core}, bucket: c.Bucket, region: c.Region}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return mapMinioError("put", key, s.api.PutObject(ctx, s.bucket, key, data, contentType))
}

func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.api.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, mapMinioError("get", key, err)
	}
	return data, nil
}

func (s *MinioStore) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	if err := validateRange(offset, length); err != nil {
		return nil, err
	}
	data, err := s.api.GetObjectRange(ctx, s.bucket, key, offset, length)
	if err != nil {
		return nil, mapMinioError("get range", key, err)
	}
	return data, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	return mapMinioError("delete", key, s.api.RemoveObject(ctx, s.bucket, key))
}

func (s *MinioStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.api.StatObject(ctx, s.bucket, key)
	if err != nil {
		return ObjectInfo{}, mapMinioError("stat", key, err)
	}
	return ObjectInfo{Size: info.Size, ETag: info.ETag}, nil
}

func (s *MinioStore) InitiateMultipart(ctx context.Context, key, contentType string) (string, error) {
	id, err := s.api.NewMultipartUpload(ctx, s.bucket, key, contentType)
	if err != nil {
		return "", mapMinioError("initiate multipart", key, err)
	}
	return id, nil
}

func (s *MinioStore) UploadPart(ctx context.Context, key, uploadID string, number int32, data []byte) (string, error) {
	if err := ValidatePartNumber(number); err != nil {
		return "", err
	}
	etag, err := s.api.PutObjectPart(ctx, s.bucket, key, uploadID, int(number), data)
	if err != nil {
		return "", mapMinioError("upload part", key, err)
	}
	return etag, nil
}

func (s *MinioStore) CompleteMultipart(ctx context.Context, key, uploadID string, parts []Part) error {
	if err := ValidateParts(parts); err != nil {
		return err
	}
	completed := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, minio.CompletePart{PartNumber: int(p.Number), ETag: p.ETag})
	}
	return mapMinioError("complete multipart", key, s.api.CompleteMultipartUpload(ctx, s.bucket, key, uploadID, completed))
}

func (s *MinioStore) AbortMultipart(ctx context.Context, key, uploadID string) error {
	return mapMinioError("abort multipart", key, s.api.AbortMultipartUpload(ctx, s.bucket, key, uploadID))
}

func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return mapMinioError("bucket exists", s.bucket, err)
	}
	if exists {
		return nil
	}
	return mapMinioError("make bucket", s.bucket, s.api.MakeBucket(ctx, s.bucket, s.region))
}

func mapMinioError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchUpload", "NoSuchBucket":
		return wrap(op, key, ErrNotFound, err)
	case "InvalidPart", "InvalidPartOrder", "EntityTooSmall":
		return wrap(op, key, ErrInvalidPart, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return wrap(op, key, ErrPermissionDenied, err)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return wrap(op, key, ErrNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return wrap(op, key, ErrPermissionDenied, err)
	}
	return wrap(op, key, ErrUnavailable, err)
}
