package providers

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/Avacaato/loop-orchestration/internal/llm"
)

var (
	statusPattern     = regexp.MustCompile(`(?i)(?:status(?: code)?|http)[:\s]*([1-5]\d\d)\b`)
	retryAfterPattern = regexp.MustCompile(`(?i)retry[- ]after[:\s]*(\d+)`)
)

// wrapError turns a client error into an *llm.TransportError. When the
// caller's context is done its error is returned unchanged.
func wrapError(parent context.Context, endpoint, model string, err error) error {
	if err == nil {
		return nil
	}
	if perr := parent.Err(); perr != nil {
		return perr
	}

	te := &llm.TransportError{Endpoint: endpoint, Model: model, Err: err}
	te.HTTPStatus, te.RetryAfter = extractErrorMetadata(err)

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		te.HTTPStatus = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		te.HTTPStatus = reqErr.HTTPStatusCode
	}

	var netErr net.Error
	lower := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		te.Kind = llm.KindTimeout
	case te.HTTPStatus != 0:
		te.Kind = llm.KindFromStatus(te.HTTPStatus)
	case strings.Contains(lower, "model") && strings.Contains(lower, "not found"):
		te.Kind = llm.KindModelNotFound
	default:
		te.Kind = llm.KindUnreachable
	}
	return te
}

// extractErrorMetadata pulls an HTTP status and Retry-After hint out of an
// error message for clients that do not expose them as fields.
func extractErrorMetadata(err error) (int, time.Duration) {
	msg := err.Error()
	var status int
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		status, _ = strconv.Atoi(m[1])
	}
	var retryAfter time.Duration
	if m := retryAfterPattern.FindStringSubmatch(msg); m != nil {
		secs, _ := strconv.Atoi(m[1])
		retryAfter = time.Duration(secs) * time.Second
	}
	return status, retryAfter
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
