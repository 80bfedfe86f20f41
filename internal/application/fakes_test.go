package application_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fduhole/dxkit/internal/domain/model"
)

// --- Mock implementations ---

type mockAuthAPI struct {
	login        func(ctx context.Context, email, password string) (model.Credential, error)
	register     func(ctx context.Context, email, password, verification string, create bool) (model.Credential, error)
	refreshToken func(ctx context.Context, refresh string) (model.Credential, error)
	logout       func(ctx context.Context) error
	loadUserInfo func(ctx context.Context) (model.User, error)

	logoutCalls  atomic.Int32
	refreshCalls atomic.Int32
	userCalls    atomic.Int32
}

func (m *mockAuthAPI) Login(ctx context.Context, email, password string) (model.Credential, error) {
	return m.login(ctx, email, password)
}

func (m *mockAuthAPI) Register(ctx context.Context, email, password, verification string, create bool) (model.Credential, error) {
	return m.register(ctx, email, password, verification, create)
}

func (m *mockAuthAPI) RefreshToken(ctx context.Context, refresh string) (model.Credential, error) {
	m.refreshCalls.Add(1)
	return m.refreshToken(ctx, refresh)
}

func (m *mockAuthAPI) Logout(ctx context.Context) error {
	m.logoutCalls.Add(1)
	if m.logout == nil {
		return nil
	}
	return m.logout(ctx)
}

func (m *mockAuthAPI) LoadUserInfo(ctx context.Context) (model.User, error) {
	m.userCalls.Add(1)
	return m.loadUserInfo(ctx)
}

type mockNotificationAPI struct {
	mu       sync.Mutex
	uploads  []string
	deletes  []string
	upload   func(ctx context.Context, deviceID, token string) error
	deleteFn func(ctx context.Context, deviceID string) error
}

func (m *mockNotificationAPI) UploadNotificationToken(ctx context.Context, deviceID, token string) error {
	m.mu.Lock()
	m.uploads = append(m.uploads, token)
	m.mu.Unlock()
	if m.upload == nil {
		return nil
	}
	return m.upload(ctx, deviceID, token)
}

func (m *mockNotificationAPI) DeleteNotificationToken(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	m.deletes = append(m.deletes, deviceID)
	m.mu.Unlock()
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, deviceID)
}

type mockForumAPI struct {
	loadTags        func(ctx context.Context) ([]model.Tag, error)
	loadDivisions   func(ctx context.Context) ([]model.Division, error)
	loadFavoriteIDs func(ctx context.Context) ([]int, error)
	toggleFavorite  func(ctx context.Context, holeID int, add bool) ([]int, error)

	tagCalls      atomic.Int32
	divisionCalls atomic.Int32
	favoriteCalls atomic.Int32
}

func (m *mockForumAPI) LoadTags(ctx context.Context) ([]model.Tag, error) {
	m.tagCalls.Add(1)
	return m.loadTags(ctx)
}

func (m *mockForumAPI) LoadDivisions(ctx context.Context) ([]model.Division, error) {
	m.divisionCalls.Add(1)
	return m.loadDivisions(ctx)
}

func (m *mockForumAPI) LoadFavoriteIDs(ctx context.Context) ([]int, error) {
	m.favoriteCalls.Add(1)
	return m.loadFavoriteIDs(ctx)
}

func (m *mockForumAPI) ToggleFavorite(ctx context.Context, holeID int, add bool) ([]int, error) {
	return m.toggleFavorite(ctx, holeID, add)
}

type mockCurriculumAPI struct {
	hash       func(ctx context.Context) (string, error)
	groups     func(ctx context.Context) ([]model.CourseGroup, error)
	hashCalls  atomic.Int32
	groupCalls atomic.Int32
}

func (m *mockCurriculumAPI) LoadCourseHash(ctx context.Context) (string, error) {
	m.hashCalls.Add(1)
	return m.hash(ctx)
}

func (m *mockCurriculumAPI) LoadCourseGroups(ctx context.Context) ([]model.CourseGroup, error) {
	m.groupCalls.Add(1)
	return m.groups(ctx)
}

type memorySecretStore struct {
	mu     sync.Mutex
	values map[string][]byte
	getErr error
	setErr error
}

func newMemorySecretStore() *memorySecretStore {
	return &memorySecretStore{values: make(map[string][]byte)}
}

func (m *memorySecretStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.values[key], nil
}

func (m *memorySecretStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *memorySecretStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

type memoryPreferenceStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryPreferenceStore() *memoryPreferenceStore {
	return &memoryPreferenceStore{values: make(map[string]string)}
}

func (m *memoryPreferenceStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryPreferenceStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryPreferenceStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

type memoryValueCache[T any] struct {
	mu      sync.Mutex
	value   T
	found   bool
	stores  int
	removes int
	loadErr error
}

func (m *memoryValueCache[T]) Load() (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		var zero T
		return zero, false, m.loadErr
	}
	return m.value, m.found, nil
}

func (m *memoryValueCache[T]) Store(v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = v
	m.found = true
	m.stores++
	return nil
}

func (m *memoryValueCache[T]) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	m.value = zero
	m.found = false
	m.removes++
	return nil
}

type countingClearer struct {
	calls atomic.Int32
}

func (c *countingClearer) ClearAll() { c.calls.Add(1) }
