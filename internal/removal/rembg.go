package removal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const rembgRemovePath = "/api/remove"

// RembgRemover calls the HTTP API of a rembg server (`rembg s`), which runs
// the segmentation model and the alpha matting itself.
type RembgRemover struct {
	client *resty.Client
	model  string
}

func NewRembgRemover(baseURL, model string, timeout time.Duration) *RembgRemover {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &RembgRemover{client: client, model: model}
}

func (r *RembgRemover) Name() string {
	return "rembg/" + r.model
}

func (r *RembgRemover) Remove(ctx context.Context, subject []byte, opts Options) ([]byte, error) {
	if len(subject) == 0 {
		return nil, errors.New("empty subject image")
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetFileReader("file", "subject.png", bytes.NewReader(subject)).
		SetFormData(rembgForm(r.model, opts)).
		Post(rembgRemovePath)
	if err != nil {
		return nil, fmt.Errorf("rembg request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rembg returned %d: %s", resp.StatusCode(), bytes.TrimSpace(resp.Body()))
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, errors.New("rembg returned an empty body")
	}
	return body, nil
}

// rembgForm maps the options onto rembg's form field names.
func rembgForm(model string, opts Options) map[string]string {
	return map[string]string{
		"model": model,
		"a":     strconv.FormatBool(opts.AlphaMatting),
		"af":    strconv.Itoa(opts.ForegroundThreshold),
		"ab":    strconv.Itoa(opts.BackgroundThreshold),
		"ae":    strconv.Itoa(opts.ErodeSize),
	}
}
