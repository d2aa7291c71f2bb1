package blobstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MinPartSize is the smallest non-final part S3 accepts.
const MinPartSize = 5 << 20

// MemStore keeps objects in process memory. It follows S3 multipart rules,
// including MinPartSize, and backs the "memory" backend and service tests.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads map[string]*memUpload
}

type memUpload struct {
	key   string
	parts map[int32][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string][]byte),
		uploads: make(map[string]*memUpload),
	}
}

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (m *MemStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(data)
	return nil
}

func (m *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("blobstore get %q: %w", key, ErrNotFound)
	}
	return bytes.Clone(data), nil
}

func (m *MemStore) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	if err := validateRange(offset, length); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("blobstore get %q: %w", key, ErrNotFound)
	}
	size := int64(len(data))
	if offset >= size {
		return []byte{}, nil
	}
	return bytes.Clone(data[offset:min(offset+length, size)]), nil
}

// Delete is idempotent, like S3 DeleteObject.
func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemStore) Stat(_ context.Context, key string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, fmt.Errorf("blobstore stat %q: %w", key, ErrNotFound)
	}
	return ObjectInfo{Size: int64(len(data)), ETag: etagOf(data)}, nil
}

func (m *MemStore) InitiateMultipart(_ context.Context, key, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.uploads[id] = &memUpload{key: key, parts: make(map[int32][]byte)}
	return id, nil
}

func (m *MemStore) upload(key, uploadID string) (*memUpload, error) {
	u, ok := m.uploads[uploadID]
	if !ok || u.key != key {
		return nil, fmt.Errorf("blobstore upload %q: %w", uploadID, ErrNotFound)
	}
	return u, nil
}

func (m *MemStore) UploadPart(_ context.Context, key, uploadID string, number int32, data []byte) (string, error) {
	if err := ValidatePartNumber(number); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.upload(key, uploadID)
	if err != nil {
		return "", err
	}
	u.parts[number] = bytes.Clone(data)
	return etagOf(data), nil
}

func (m *MemStore) CompleteMultipart(_ context.Context, key, uploadID string, parts []Part) error {
	if err := ValidateParts(parts); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.upload(key, uploadID)
	if err != nil {
		return err
	}

	var merged bytes.Buffer
	for i, p := range parts {
		data, ok := u.parts[p.Number]
		if !ok || etagOf(data) != p.ETag {
			return fmt.Errorf("blobstore complete %q: invalid part %d: %w", key, p.Number, ErrInvalidPart)
		}
		if i < len(parts)-1 && len(data) < MinPartSize {
			return fmt.Errorf("blobstore complete %q: part %d too small: %w", key, p.Number, ErrInvalidPart)
		}
		merged.Write(data)
	}
	m.objects[key] = merged.Bytes()
	delete(m.uploads, uploadID)
	return nil
}

func (m *MemStore) AbortMultipart(_ context.Context, key, uploadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.upload(key, uploadID); err != nil {
		return err
	}
	delete(m.uploads, uploadID)
	return nil
}

func (m *MemStore) EnsureBucket(context.Context) error { return nil }

// Len reports how many objects are stored.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// Keys lists stored object keys in no particular order.
func (m *MemStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

// OpenUploads reports how many multipart uploads are in flight.
func (m *MemStore) OpenUploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}
