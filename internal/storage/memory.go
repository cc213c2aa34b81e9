package storage

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/dmitrijs2005/continu/internal/common"
)

// Memory is an in-process Gateway.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    map[string]error
	uploads []string
}

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}, fail: map[string]error{}}
}

// FailOn makes every Upload and Download of name fail with err. A nil err
// clears the failure.
func (m *Memory) FailOn(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, name)
		return
	}
	m.fail[name] = err
}

// Uploads returns the names passed to Upload, in call order, including
// failed attempts.
func (m *Memory) Uploads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.uploads...)
}

// Object returns the stored bytes of name.
func (m *Memory) Object(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[name]
	return append([]byte(nil), b...), ok
}

func (m *Memory) Upload(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return &TransferError{Op: "upload", Name: name, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.uploads = append(m.uploads, name)
	if err, ok := m.fail[name]; ok {
		return &TransferError{Op: "upload", Name: name, StatusCode: http.StatusInternalServerError, Err: err}
	}
	m.objects[name] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Download(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransferError{Op: "download", Name: name, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.fail[name]; ok {
		return nil, &TransferError{Op: "download", Name: name, StatusCode: http.StatusInternalServerError, Err: err}
	}
	b, ok := m.objects[name]
	if !ok {
		return nil, &TransferError{Op: "download", Name: name, StatusCode: http.StatusNotFound, Err: common.ErrNotFound}
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransferError{Op: "list", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.objects))
	for n := range m.objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
