package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/KathyFeiyang/cs152bots/util"

	"github.com/carlmjohnson/versioninfo"
)

// HTTPClassifier calls a hosted text-classification model, with the Hugging Face inference
// request and response shapes.
type HTTPClassifier struct {
	Client   http.Client
	URL      string
	ApiToken string
	// label whose probability is the disinformation score. When empty, the first entry is used.
	PositiveLabel string
}

var _ Classifier = (*HTTPClassifier)(nil)

// schema: [[{"label": "...", "score": 0.98}, ...]]
type inferenceResp [][]inferenceClass

type inferenceClass struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func NewHTTPClassifier(url, token, positiveLabel string) *HTTPClassifier {
	return &HTTPClassifier{
		Client:        *util.RobustHTTPClient(),
		URL:           url,
		ApiToken:      token,
		PositiveLabel: positiveLabel,
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if c.ApiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.ApiToken)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "modbot/"+versioninfo.Short())

	res, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer res.Body.Close()

	httpAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier resp body: %w", err)
	}
	var respObj inferenceResp
	if err := json.Unmarshal(respBytes, &respObj); err != nil {
		return nil, fmt.Errorf("failed to parse classifier resp JSON: %w", err)
	}
	return c.summarize(respObj)
}

func (c *HTTPClassifier) summarize(resp inferenceResp) (*Result, error) {
	if len(resp) == 0 || len(resp[0]) == 0 {
		return nil, fmt.Errorf("empty classifier response")
	}
	classes := resp[0]
	if c.PositiveLabel == "" {
		return &Result{Score: clampScore(classes[0].Score), Label: classes[0].Label}, nil
	}
	for _, cls := range classes {
		if cls.Label == c.PositiveLabel {
			return &Result{Score: clampScore(cls.Score), Label: cls.Label}, nil
		}
	}
	return nil, fmt.Errorf("classifier response missing label %q", c.PositiveLabel)
}
