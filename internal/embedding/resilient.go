package embedding

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openaisdk "github.com/openai/openai-go/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/spigell/cv-matcher/internal/cverrors"
	"github.com/spigell/cv-matcher/internal/logger"
)

// Options tune the Resilient wrapper.
type Options struct {
	// Timeout bounds a single attempt.
	Timeout    time.Duration
	MaxRetries int
	// RateLimit is requests per second, zero means unlimited.
	RateLimit float64
	// InitialInterval is the first backoff delay. Zero uses the backoff default.
	InitialInterval time.Duration
}

// Resilient decorates a Provider with a per-call timeout, retries of transient
// failures and an optional request rate limit.
type Resilient struct {
	next    Provider
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewResilient(next Provider, opts Options, log *zap.Logger) *Resilient {
	r := &Resilient{
		next:   next,
		opts:   opts,
		logger: logger.WithCommonFields(log, next.Name(), next.Model()),
	}
	if opts.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return r
}

func (r *Resilient) Name() string  { return r.next.Name() }
func (r *Resilient) Model() string { return r.next.Model() }

func (r *Resilient) Embed(ctx context.Context, text string) ([]float64, error) {
	var (
		vector  []float64
		attempt int
	)

	op := func() error {
		attempt++

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		callCtx := ctx
		if r.opts.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
			defer cancel()
		}

		v, err := r.next.Embed(callCtx, text)
		if err == nil {
			vector = v
			return nil
		}

		if ctx.Err() != nil || !IsTransient(err) {
			return backoff.Permanent(err)
		}

		r.logger.Warn("embedding attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		return err
	}

	policy := backoff.NewExponentialBackOff()
	if r.opts.InitialInterval > 0 {
		policy.InitialInterval = r.opts.InitialInterval
	}
	policy.MaxElapsedTime = 0

	maxRetries := r.opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx))
	if err != nil {
		var embErr *cverrors.EmbeddingError
		if errors.As(err, &embErr) {
			return nil, err
		}
		return nil, cverrors.NewEmbeddingError(r.next.Name(), r.next.Model(), err)
	}
	return vector, nil
}

// StatusCoder is implemented by errors carrying an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// IsTransient reports whether an embedding failure is worth retrying:
// network errors, attempt timeouts, 429 and 5xx responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		return retryableStatus(coder.HTTPStatus())
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return retryableStatus(apiErrPtr.Code)
	}

	var openaiErr *openaisdk.Error
	if errors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.StatusCode)
	}

	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
