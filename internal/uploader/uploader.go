// Package uploader pushes encoded snapshots to the remote snapshot
// endpoint and classifies each attempt's outcome for the scheduler.
package uploader

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OutcomeKind classifies one upload attempt.
type OutcomeKind int

const (
	// Success is any 2xx response.
	Success OutcomeKind = iota
	// ClientError is a completed exchange with a non-2xx status.
	ClientError
	// TransportError is any failure to complete the exchange: refused
	// connection, DNS failure, timeout, TLS failure.
	TransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case ClientError:
		return "client_error"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one upload attempt. All failure paths are
// represented here; Upload never returns an error to the caller.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Body       string
	Err        error
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool { return o.Kind == Success }

// maxBodyDiagnostic bounds how much of an error response body is kept
// for logging and the cycle journal.
const maxBodyDiagnostic = 2048

// Uploader PUTs snapshot bytes to a fixed endpoint with the token and
// fingerprint identifying headers.
type Uploader struct {
	url         string
	token       string
	fingerprint string
	client      *http.Client
}

// New builds an uploader. A nil client gets a default with the given
// timeout applied.
func New(url, token, fingerprint string, timeout time.Duration, client *http.Client) (*Uploader, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("upload url is empty")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("upload token is empty")
	}
	if strings.TrimSpace(fingerprint) == "" {
		return nil, errors.New("upload fingerprint is empty")
	}
	if client == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Uploader{
		url:         strings.TrimSpace(url),
		token:       strings.TrimSpace(token),
		fingerprint: strings.TrimSpace(fingerprint),
		client:      client,
	}, nil
}

// Upload sends one snapshot. The outcome carries the status code and
// response body (truncated) on rejection so the operator can see why the
// endpoint said no.
func (u *Uploader) Upload(ctx context.Context, jpeg []byte) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.url, bytes.NewReader(jpeg))
	if err != nil {
		return Outcome{Kind: TransportError, Err: errors.Wrap(err, "build upload request")}
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Token", u.token)
	req.Header.Set("Fingerprint", u.fingerprint)

	resp, err := u.client.Do(req)
	if err != nil {
		return Outcome{Kind: TransportError, Err: errors.Wrap(err, "call snapshot endpoint")}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Info().Int("status", resp.StatusCode).Int("bytes", len(jpeg)).Msg("upload successful")
		return Outcome{Kind: Success, StatusCode: resp.StatusCode}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyDiagnostic))
	return Outcome{
		Kind:       ClientError,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
