// Package testutil provides shared fixtures and mock implementations for
// interfaces defined in the analysis library. The mocks isolate components
// under test; configure expectations with testify/mock.
package testutil

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/seqlab/trace-oracle/pkg/oracle"
)

// MockHooks provides a mock implementation of the oracle.Hooks interface.
type MockHooks struct {
	mock.Mock
}

// OnFileDiscovered mocks the OnFileDiscovered method.
func (m *MockHooks) OnFileDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// OnFileStatusUpdate mocks the OnFileStatusUpdate method.
func (m *MockHooks) OnFileStatusUpdate(path string, status oracle.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

// OnRunComplete mocks the OnRunComplete method.
func (m *MockHooks) OnRunComplete(report oracle.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

// MockCacheManager provides a mock implementation of the
// oracle.CacheManager interface.
type MockCacheManager struct {
	mock.Mock
}

// Load mocks the Load method.
func (m *MockCacheManager) Load(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

// Check mocks the Check method.
func (m *MockCacheManager) Check(filePath string, contentHash string) (fields []string, isHit bool) {
	args := m.Called(filePath, contentHash)
	fields, _ = args.Get(0).([]string)
	isHit, _ = args.Get(1).(bool)
	return
}

// Update mocks the Update method.
func (m *MockCacheManager) Update(filePath string, contentHash string, fields []string) error {
	args := m.Called(filePath, contentHash, fields)
	return args.Error(0)
}

// Persist mocks the Persist method.
func (m *MockCacheManager) Persist(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

// MockEncodingHandler provides a mock implementation of the
// encoding.Handler interface.
type MockEncodingHandler struct {
	mock.Mock
}

// DetectAndDecode mocks the DetectAndDecode method.
func (m *MockEncodingHandler) DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certain bool, err error) {
	args := m.Called(content)
	utf8Content, _ = args.Get(0).([]byte)
	detectedEncoding, _ = args.Get(1).(string)
	certain, _ = args.Get(2).(bool)
	err = args.Error(3)
	return
}

// IsBinary mocks the IsBinary method.
func (m *MockEncodingHandler) IsBinary(content []byte) bool {
	args := m.Called(content)
	isBinary, _ := args.Get(0).(bool)
	return isBinary
}

// MockGitClient provides a mock implementation of the oracle.GitClient
// interface.
type MockGitClient struct {
	mock.Mock
}

// HeadCommit mocks the HeadCommit method.
func (m *MockGitClient) HeadCommit(repoPath string) (string, bool, error) {
	args := m.Called(repoPath)
	commit, _ := args.Get(0).(string)
	dirty, _ := args.Get(1).(bool)
	return commit, dirty, args.Error(2)
}
