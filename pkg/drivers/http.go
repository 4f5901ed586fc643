package drivers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// UseNumber keeps large backend ids exact.
var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// restClient is the single HTTP client shared by the REST drivers for the
// whole run.
type restClient struct {
	base     *url.URL
	client   *http.Client
	username string
	password string
}

func newRESTClient(opts Options) (*restClient, error) {
	if opts.URL == "" {
		return nil, errors.New("backend url is required")
	}
	raw := opts.URL
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing backend url %q", opts.URL)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("backend url %q must be http or https", opts.URL)
	}
	return &restClient{
		base:     base,
		client:   &http.Client{Timeout: opts.Timeout},
		username: opts.Username,
		password: opts.Password,
	}, nil
}

// resolve turns a path relative to the base URL, or an absolute URL handed
// out by the backend, into a request target.
func (c *restClient) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrapf(ErrBackendRejected, "invalid reference %q", ref)
	}
	return c.base.ResolveReference(u).String(), nil
}

// do issues one request and returns the full response body. body may be nil,
// otherwise it is sent as JSON.
func (c *restClient) do(ctx context.Context, method, ref string, body interface{}) (Payload, error) {
	target, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(ErrBackendRejected, "encoding %s %s: %v", method, target, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrapf(ErrBackendRejected, "building %s %s: %v", method, target, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err, "%s %s", method, target)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err, "reading %s %s", method, target)
	}
	if err := statusError(resp.StatusCode, payload, "%s %s", method, target); err != nil {
		return nil, err
	}
	return payload, nil
}
