package mutation

import (
	"context"
	"time"
)

// InputTransform rewrites the mutation input before it is used.
type InputTransform func(ctx context.Context, mutation string, input map[string]any) (map[string]any, error)

// ShortCircuit may handle a mutation instead of its callback. When handled is
// true the returned payload replaces the mutate step.
type ShortCircuit func(ctx context.Context, mutation string, input map[string]any) (payload map[string]any, handled bool, err error)

// PayloadTransform rewrites the payload returned by the mutate step.
type PayloadTransform func(ctx context.Context, mutation string, payload, input map[string]any) (map[string]any, error)

// Observer is told about every mutation after it ran. It receives a copy of
// the payload.
type Observer func(ctx context.Context, o Observation)

// Observation describes one mutation call.
type Observation struct {
	Name     string
	Input    map[string]any
	Payload  map[string]any
	Err      error
	Duration time.Duration
}

// Hooks are the extension points of every mutation, run in registration
// order. A nil *Hooks has no hooks.
type Hooks struct {
	InputTransforms   []InputTransform
	ShortCircuits     []ShortCircuit
	PayloadTransforms []PayloadTransform
	Observers         []Observer
}

func (h *Hooks) transformInput(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	if h == nil {
		return input, nil
	}
	for _, t := range h.InputTransforms {
		var err error
		if input, err = t(ctx, name, input); err != nil {
			return input, err
		}
	}
	return input, nil
}

// shortCircuit returns the first handled result.
func (h *Hooks) shortCircuit(ctx context.Context, name string, input map[string]any) (map[string]any, bool, error) {
	if h == nil {
		return nil, false, nil
	}
	for _, s := range h.ShortCircuits {
		payload, handled, err := s(ctx, name, input)
		if err != nil || handled {
			return payload, handled, err
		}
	}
	return nil, false, nil
}

func (h *Hooks) transformPayload(ctx context.Context, name string, payload, input map[string]any) (map[string]any, error) {
	if h == nil {
		return payload, nil
	}
	for _, t := range h.PayloadTransforms {
		var err error
		if payload, err = t(ctx, name, payload, input); err != nil {
			return payload, err
		}
	}
	return payload, nil
}

func (h *Hooks) observe(ctx context.Context, o Observation) {
	if h == nil {
		return
	}
	// Each observer gets its own maps, so none can change what the
	// resolver returns or what the next observer sees.
	for _, obs := range h.Observers {
		each := o
		each.Input, each.Payload = copyMap(o.Input), copyMap(o.Payload)
		obs(ctx, each)
	}
}
