package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestParseCompletion(t *testing.T) {
	assert := assert.New(t)

	res := ParseCompletion("Score: 0.92\nClassification: Conspiracy theory")
	assert.Equal(0.92, res.Score)
	assert.Equal("Conspiracy theory", res.Label)

	// preamble lines are ignored
	res = ParseCompletion("Sure, here is my answer.\n\nScore: 0.1\nClassification: other\n")
	assert.Equal(0.1, res.Score)
	assert.Equal("other", res.Label)

	res = ParseCompletion("Score: 1.7\nClassification: fabricated information")
	assert.Equal(1.0, res.Score)
	res = ParseCompletion("Score: -3\nClassification: other")
	assert.Equal(0.0, res.Score)

	res = ParseCompletion("Score: very likely\nClassification: imposter")
	assert.Equal(UnknownScore, res.Score)
	assert.Equal("imposter", res.Label)

	res = ParseCompletion("I can not classify this message.")
	assert.Equal(UnknownScore, res.Score)
	assert.Empty(res.Label)
}

func TestHTTPClassifier(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `[[{"label":"FAKE","score":0.83},{"label":"TRUE","score":0.17}]]`)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, "secret", "FAKE")
	res, err := c.Classify(ctx, "the earth is flat")
	assert.NoError(err)
	assert.Equal(0.83, res.Score)
	assert.Equal("FAKE", res.Label)

	c.PositiveLabel = "TRUE"
	res, err = c.Classify(ctx, "the earth is flat")
	assert.NoError(err)
	assert.Equal(0.17, res.Score)

	c.PositiveLabel = "MISSING"
	_, err = c.Classify(ctx, "the earth is flat")
	assert.Error(err)

	c = NewHTTPClassifier(srv.URL, "wrong", "")
	_, err = c.Classify(ctx, "the earth is flat")
	assert.Error(err)
}

type slowClassifier struct {
	delay time.Duration
}

func (s slowClassifier) Classify(ctx context.Context, text string) (*Result, error) {
	// ignores ctx on purpose
	time.Sleep(s.delay)
	return &Result{Score: 0.9}, nil
}

type panicClassifier struct{}

func (panicClassifier) Classify(ctx context.Context, text string) (*Result, error) {
	panic("boom")
}

func TestGuard(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mock := NewMockClassifier(0.3).On("microchips", Result{Score: 1.4, Label: "conspiracy theory"})
	g := NewGuard("mock", mock, time.Second, nil)

	res, err := g.Classify(ctx, "vaccines contain microchips")
	assert.NoError(err)
	assert.Equal(1.0, res.Score)
	assert.Equal("conspiracy theory", res.Label)

	res, err = g.Classify(ctx, "nice weather today")
	assert.NoError(err)
	assert.Equal(0.3, res.Score)
	assert.Equal(2, mock.Calls())

	mock.Err = errors.New("upstream down")
	_, err = g.Classify(ctx, "anything")
	assert.ErrorIs(err, ErrClassifierUnavailable)

	g = NewGuard("slow", slowClassifier{delay: 500 * time.Millisecond}, 20*time.Millisecond, nil)
	start := time.Now()
	_, err = g.Classify(ctx, "anything")
	assert.ErrorIs(err, ErrClassifierUnavailable)
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.Less(time.Since(start), 400*time.Millisecond)

	g = NewGuard("panic", panicClassifier{}, time.Second, nil)
	_, err = g.Classify(ctx, "anything")
	assert.ErrorIs(err, ErrClassifierUnavailable)
}

func TestGuardRateLimit(t *testing.T) {
	assert := assert.New(t)

	// one token, refilled every minute: the second call can't get a token before the deadline
	lim := rate.NewLimiter(rate.Every(time.Minute), 1)
	g := NewGuard("limited", NewMockClassifier(0.5), 50*time.Millisecond, lim)

	_, err := g.Classify(context.Background(), "first")
	assert.NoError(err)
	_, err = g.Classify(context.Background(), "second")
	assert.ErrorIs(err, ErrClassifierUnavailable)
}
