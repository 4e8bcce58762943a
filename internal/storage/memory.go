package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process append store with the same existence rules as a
// real append blob service: containers must exist, blobs must be created
// before they are appended to.
type Memory struct {
	mu         sync.Mutex
	containers map[string]map[string]*memBlob
}

type memBlob struct {
	data     []byte
	modified time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{containers: make(map[string]map[string]*memBlob)}
}

func (m *Memory) EnsureContainer(_ context.Context, container string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.containers[container]; !ok {
		m.containers[container] = make(map[string]*memBlob)
	}
	return nil
}

func (m *Memory) Exists(_ context.Context, container, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blobs, err := m.container(container)
	if err != nil {
		return false, err
	}
	_, ok := blobs[name]
	return ok, nil
}

func (m *Memory) CreateEmpty(_ context.Context, container, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	blobs, err := m.container(container)
	if err != nil {
		return err
	}
	if _, ok := blobs[name]; !ok {
		blobs[name] = &memBlob{modified: time.Now()}
	}
	return nil
}

func (m *Memory) AppendBlock(_ context.Context, container, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	blobs, err := m.container(container)
	if err != nil {
		return err
	}
	b, ok := blobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, name)
	}
	b.data = append(b.data, data...)
	b.modified = time.Now()
	return nil
}

func (m *Memory) ListBlobs(_ context.Context, container, prefix string) ([]BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blobs, err := m.container(container)
	if err != nil {
		return nil, err
	}
	out := make([]BlobInfo, 0, len(blobs))
	for name, b := range blobs {
		if strings.HasPrefix(name, prefix) {
			out = append(out, BlobInfo{Name: name, Size: int64(len(b.data)), LastModified: b.modified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ReadBlob(_ context.Context, container, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blobs, err := m.container(container)
	if err != nil {
		return nil, err
	}
	b, ok := blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, name)
	}
	return append([]byte(nil), b.data...), nil
}

// container must be called with m.mu held.
func (m *Memory) container(name string) (map[string]*memBlob, error) {
	blobs, ok := m.containers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}
	return blobs, nil
}
