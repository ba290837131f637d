package wsconsole

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// fakeTransport records every Open call so tests can fire callbacks on behalf of a given connection attempt.
type fakeTransport struct {
	mu        sync.Mutex
	OpenFunc  func(ctx context.Context, address string) (TransportHandle, error)
	addresses []string
	callbacks []Callbacks
}

func (f *fakeTransport) Open(ctx context.Context, address string, cb Callbacks) (TransportHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, err := f.OpenFunc(ctx, address)
	if err != nil {
		return nil, err
	}
	f.addresses = append(f.addresses, address)
	f.callbacks = append(f.callbacks, cb)
	return h, nil
}

// attempt returns the callbacks registered by the i-th successful Open.
func (f *fakeTransport) attempt(i int) Callbacks {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.callbacks[i]
}

// last returns the callbacks registered by the latest successful Open.
func (f *fakeTransport) last() Callbacks {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.callbacks[len(f.callbacks)-1]
}

type mockHandle struct {
	mock.Mock
}

func (m *mockHandle) Send(text string) error {
	args := m.Called(text)
	return args.Error(0)
}

func (m *mockHandle) Close() {
	m.Called()
}

func newFakeTransport(handles ...TransportHandle) *fakeTransport {
	i := 0
	return &fakeTransport{
		OpenFunc: func(context.Context, string) (TransportHandle, error) {
			if i >= len(handles) {
				return &mockHandle{}, nil
			}
			h := handles[i]
			i++
			return h, nil
		},
	}
}
