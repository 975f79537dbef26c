// Package mutation registers Relay-style mutations: an input type, a payload
// type and a root mutation field running the mutate callback through the
// transform hooks.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/events"
	"github.com/hanpama/contentgraph/internal/registry"
	"github.com/hanpama/contentgraph/internal/schema"
)

// ClientMutationID is the field echoed from input to payload.
const ClientMutationID = "clientMutationId"

// MutateFunc performs the mutation and returns the payload.
type MutateFunc func(ctx context.Context, input map[string]any, info registry.ResolveInfo) (map[string]any, error)

// AuthFunc rejects a mutation before it runs.
type AuthFunc func(ctx context.Context, input map[string]any) error

// Spec describes a mutation.
type Spec struct {
	Name                string
	Description         string
	InputFields         registry.Fields
	OutputFields        registry.Fields
	MutateAndGetPayload MutateFunc
	Auth                AuthFunc
	DeprecationReason   string
}

// Mutation is the result of Register. An excluded mutation is inert.
type Mutation struct {
	Name      string
	FieldName string
	Excluded  bool
}

// InputTypeName is the name of the input object.
func (m *Mutation) InputTypeName() string { return m.Name + "Input" }

// PayloadTypeName is the name of the payload object.
func (m *Mutation) PayloadTypeName() string { return m.Name + "Payload" }

// Register registers the mutation's input and payload types and its root
// mutation field. An empty name is an error. A missing callback is reported
// as a diagnostic; the field is registered and fails when called.
func Register(reg *registry.Registry, spec Spec, hooks *Hooks) (*Mutation, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: mutation requires a name", registry.ErrInvalidArgument)
	}
	m := &Mutation{Name: spec.Name, FieldName: registry.LcFirst(spec.Name)}
	log := reg.Logger()
	if reg.Exclusions().IsMutationExcluded(spec.Name) {
		log.Debug("mutation excluded", zap.String("mutation", spec.Name))
		m.Excluded = true
		return m, nil
	}
	if spec.MutateAndGetPayload == nil {
		reg.Report(registry.Diagnostic{
			Code:    registry.CodeInvalidArgument,
			Type:    reg.MutationTypeName(),
			Field:   m.FieldName,
			Message: fmt.Sprintf("mutation %s has no mutateAndGetPayload callback", spec.Name),
		})
	}

	input := registry.Fields{
		ClientMutationID: {Type: "String", Description: "This is an ID that can be passed to a mutation by the client to track the progress of mutations and catch possible duplicate mutation submissions."},
	}
	for name, f := range spec.InputFields {
		input[name] = f
	}
	if _, err := reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        m.InputTypeName(),
		Kind:        schema.TypeKindInputObject,
		Description: fmt.Sprintf("Input for the %s mutation.", m.FieldName),
		Fields:      registry.StaticFields(input),
	}); err != nil {
		return nil, err
	}

	output := registry.Fields{
		ClientMutationID: {Type: "String", Description: "If a 'clientMutationId' input is provided to the mutation, it will be returned as output on the mutation. This ID can be used by the client to track the progress of mutations and catch possible duplicate mutation submissions."},
	}
	for name, f := range spec.OutputFields {
		output[name] = f
	}
	if _, err := reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        m.PayloadTypeName(),
		Kind:        schema.TypeKindObject,
		Description: fmt.Sprintf("The payload for the %s mutation.", m.FieldName),
		Fields:      registry.StaticFields(output),
	}); err != nil {
		return nil, err
	}

	if _, err := reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        reg.MutationTypeName(),
		Kind:        schema.TypeKindObject,
		Description: "The root mutation",
	}); err != nil {
		return nil, err
	}
	field := &registry.FieldConfig{
		Type: m.PayloadTypeName(),
		Args: map[string]*registry.ArgConfig{
			"input": {Type: m.InputTypeName() + "!", Description: "Input for the " + m.FieldName + " mutation"},
		},
		Description:       spec.Description,
		DeprecationReason: spec.DeprecationReason,
		Resolve:           resolver(log, spec, hooks),
	}
	if field.Description == "" {
		field.Description = fmt.Sprintf("The %s mutation", m.FieldName)
	}
	switch err := reg.RegisterField(reg.MutationTypeName(), m.FieldName, field); {
	case errors.Is(err, registry.ErrDuplicateField):
		log.Debug("mutation already registered", zap.String("mutation", spec.Name))
	case err != nil:
		return nil, err
	}
	return m, nil
}

func resolver(log *zap.Logger, spec Spec, hooks *Hooks) registry.ResolveFunc {
	return func(ctx context.Context, _ any, args map[string]any, info registry.ResolveInfo) (any, error) {
		start := time.Now()
		unfiltered, _ := args["input"].(map[string]any)
		if unfiltered == nil {
			unfiltered = map[string]any{}
		}
		input, payload, err := run(ctx, spec, hooks, unfiltered, info)

		observation := Observation{
			Name:     spec.Name,
			Input:    input,
			Payload:  payload,
			Err:      err,
			Duration: time.Since(start),
		}
		hooks.observe(ctx, observation)
		eventbus.Publish(ctx, events.MutationPerformed{
			Name:     observation.Name,
			Input:    copyMap(input),
			Payload:  copyMap(payload),
			Err:      observation.Err,
			Duration: observation.Duration,
		})
		if err != nil {
			log.Debug("mutation failed", zap.String("mutation", spec.Name), zap.Error(err))
			return nil, err
		}

		if id, ok := unfiltered[ClientMutationID]; ok {
			if _, set := payload[ClientMutationID]; !set {
				payload[ClientMutationID] = id
			}
		}
		return payload, nil
	}
}

func run(ctx context.Context, spec Spec, hooks *Hooks, unfiltered map[string]any, info registry.ResolveInfo) (input, payload map[string]any, err error) {
	input = unfiltered
	if spec.Auth != nil {
		if err := spec.Auth(ctx, input); err != nil {
			return input, nil, err
		}
	}
	if input, err = hooks.transformInput(ctx, spec.Name, input); err != nil {
		return input, nil, err
	}

	payload, handled, err := hooks.shortCircuit(ctx, spec.Name, input)
	if err != nil {
		return input, nil, err
	}
	if !handled {
		if spec.MutateAndGetPayload == nil {
			return input, nil, fmt.Errorf("mutation %s has no mutateAndGetPayload callback", spec.Name)
		}
		if payload, err = spec.MutateAndGetPayload(ctx, input, info); err != nil {
			return input, nil, err
		}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload, err = hooks.transformPayload(ctx, spec.Name, payload, input)
	if payload == nil && err == nil {
		payload = map[string]any{}
	}
	return input, payload, err
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
