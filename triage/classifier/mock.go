package classifier

import (
	"context"
	"strings"
	"sync"
)

// MockClassifier returns canned results. Texts are matched by substring against Rules, in
// order; otherwise Default is returned.
type MockClassifier struct {
	lk      sync.Mutex
	Rules   []MockRule
	Default Result
	// when set, every call fails with this error
	Err   error
	calls int
}

type MockRule struct {
	Contains string
	Result   Result
}

var _ Classifier = (*MockClassifier)(nil)

func NewMockClassifier(def float64) *MockClassifier {
	return &MockClassifier{Default: Result{Score: def}}
}

func (m *MockClassifier) On(substr string, res Result) *MockClassifier {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.Rules = append(m.Rules, MockRule{Contains: substr, Result: res})
	return m
}

func (m *MockClassifier) Classify(ctx context.Context, text string) (*Result, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.Rules {
		if strings.Contains(text, r.Contains) {
			res := r.Result
			return &res, nil
		}
	}
	res := m.Default
	return &res, nil
}

func (m *MockClassifier) Calls() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.calls
}
