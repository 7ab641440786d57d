package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"recurrent-agent/internal/chunker"
	"recurrent-agent/internal/provider"
	"recurrent-agent/internal/schema"
)

// Processor runs the per-chunk retry loop. Faults are chunk-local: after the
// retry budget is spent the chunk is reported failed and the run moves on.
type Processor struct {
	gateway     provider.Gateway
	validator   *schema.Validator
	maxRetries  int
	callTimeout time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewProcessor wires a processor. maxRetries is the number of retries after
// the first attempt, so a chunk gets maxRetries+1 attempts in total.
// callTimeout bounds each gateway call; 0 leaves calls unbounded.
func NewProcessor(gateway provider.Gateway, validator *schema.Validator, maxRetries int, callTimeout time.Duration) *Processor {
	return &Processor{
		gateway:     gateway,
		validator:   validator,
		maxRetries:  maxRetries,
		callTimeout: callTimeout,
		sleep:       sleepCtx,
	}
}

// generate runs one gateway call under the per-call deadline. A timed-out
// call surfaces as a provider error and takes the same retry path as any
// other transport failure.
func (p *Processor) generate(ctx context.Context, systemPrompt, userPrompt, chunkText string) (provider.Response, error) {
	if p.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}
	return p.gateway.Generate(ctx, systemPrompt, userPrompt, chunkText)
}

// Process attempts one chunk until it yields a validated response or the
// retry budget runs out. Transport failures back off 2^attempt seconds;
// malformed or schema-invalid responses retry immediately.
func (p *Processor) Process(ctx context.Context, chunk chunker.Chunk, systemPrompt, userPrompt string) (provider.Response, bool) {
	for attempt := 0; ; attempt++ {
		response, err := p.generate(ctx, systemPrompt, userPrompt, chunk.Text)
		if err != nil {
			if errors.Is(err, provider.ErrMalformedResponse) {
				log.Warn().Err(err).Int("chunk", chunk.Index).Int("attempt", attempt).
					Msg("Malformed response")
				if attempt >= p.maxRetries {
					break
				}
				continue
			}

			log.Warn().Err(err).Int("chunk", chunk.Index).Int("attempt", attempt).
				Msg("Provider error")
			if attempt >= p.maxRetries {
				break
			}
			wait := time.Duration(1<<uint(attempt)) * time.Second
			log.Info().Int("chunk", chunk.Index).Dur("wait", wait).
				Msgf("Retrying (attempt %d/%d)", attempt+1, p.maxRetries)
			if serr := p.sleep(ctx, wait); serr != nil {
				// cancelled mid-backoff; give up on this chunk
				break
			}
			continue
		}

		ok, diag := p.validator.Validate(response)
		if ok {
			return response, true
		}
		log.Warn().Str("diagnostic", diag).Int("chunk", chunk.Index).Int("attempt", attempt).
			Msg("Response validation failed")
		if attempt >= p.maxRetries {
			break
		}
	}

	log.Error().Int("chunk", chunk.Index).Int("max_retries", p.maxRetries).
		Msg("Max retries reached for chunk")
	return nil, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
