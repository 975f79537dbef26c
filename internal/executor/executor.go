package executor

import (
	"context"
	"fmt"

	language "github.com/hanpama/contentgraph/internal/language"
	schema "github.com/hanpama/contentgraph/internal/schema"
)

// Executor runs operations against one schema and runtime. It holds no
// per-request state and may be shared.
type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

type executionState struct {
	ctx       context.Context
	runtime   Runtime
	schema    *schema.Schema
	document  *language.QueryDocument
	variables map[string]any
	errors    []GraphQLError

	// pending holds the async fields queued for the next batch.
	pending []asyncTask
	// nulled holds the paths set to null by a Non-Null violation. Queued
	// fields below them are dropped.
	nulled map[string]struct{}
}

type asyncTask struct {
	task   AsyncResolveTask
	path   Path
	typ    *schema.TypeRef
	fields []*language.Field
}

// asyncPending marks a response slot that a later batch fills in.
type asyncPending struct{}

// ExecuteRequest runs the named operation of document, or its only
// operation when operationName is empty. Request errors such as a missing
// operation or bad variables are returned with nil Data.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation, err := getOperation(document, operationName)
	if err != nil {
		return requestError(err.Error())
	}
	variables, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return requestError(err.Error())
	}

	var root *schema.Type
	switch operation.Operation {
	case language.Query:
		root = e.schema.GetQueryType()
	case language.Mutation:
		root = e.schema.GetMutationType()
	case language.Subscription:
		root = e.schema.GetSubscriptionType()
	default:
		return requestError(fmt.Sprintf("unsupported operation type: %s", operation.Operation))
	}
	if root == nil {
		return requestError(fmt.Sprintf("root type not found for %s operation", operation.Operation))
	}

	state := &executionState{
		ctx:       ctx,
		runtime:   e.runtime,
		schema:    e.schema,
		document:  document,
		variables: variables,
		errors:    []GraphQLError{},
		nulled:    map[string]struct{}{},
	}
	data := executeSelectionSet(state, root, operation.SelectionSet, initialValue, Path{})

	for len(state.pending) > 0 {
		tasks := state.takePending()
		if err := ctx.Err(); err != nil {
			for _, at := range tasks {
				completeAsyncField(state, at, AsyncResolveResult{Error: err}, data)
			}
			break
		}
		batch := make([]AsyncResolveTask, len(tasks))
		for i, at := range tasks {
			batch[i] = at.task
		}
		results := state.runtime.BatchResolveAsync(ctx, batch)
		for i, at := range tasks {
			var res AsyncResolveResult
			if i < len(results) {
				res = results[i]
			} else {
				res.Error = fmt.Errorf("runtime returned %d results for %d tasks", len(results), len(tasks))
			}
			completeAsyncField(state, at, res, data)
		}
	}
	return &ExecutionResult{Data: data, Errors: state.errors}
}

func requestError(msg string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: msg}}}
}

// takePending returns the queued tasks that are still live and clears the
// queue.
func (s *executionState) takePending() []asyncTask {
	live := s.pending[:0:0]
	for _, at := range s.pending {
		if !s.isNulled(at.path) {
			live = append(live, at)
		}
	}
	s.pending = nil
	return live
}

// executeSelectionSet resolves the sync fields of one object and queues its
// async fields. It returns nil when a Non-Null field of a nested object
// ends up null.
func executeSelectionSet(state *executionState, objectType *schema.Type, set language.SelectionSet, source any, path Path) map[string]any {
	result := make(map[string]any)
	for _, group := range state.collectFields(objectType, set) {
		fieldPath := path.With(group.name)
		node := group.fields[0]
		if node.Name == "__typename" {
			result[group.name] = objectType.Name
			continue
		}
		def := objectType.FieldByName(node.Name)
		if def == nil {
			state.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", node.Name, objectType.Name), fieldPath)
			continue
		}
		args := state.coerceArguments(def, node.Arguments, fieldPath)

		if def.Async {
			state.pending = append(state.pending, asyncTask{
				task:   AsyncResolveTask{ObjectType: objectType.Name, Field: node.Name, Source: source, Args: args},
				path:   fieldPath,
				typ:    def.Type,
				fields: group.fields,
			})
			result[group.name] = asyncPending{}
			continue
		}

		value, err := state.runtime.ResolveSync(state.ctx, objectType.Name, node.Name, source, args)
		if err != nil {
			state.errors = append(state.errors, fieldError(err, fieldPath))
			value = nil
		}
		completed := completeValue(state, def.Type, group.fields, value, fieldPath)
		if isNullish(completed) {
			if schema.IsNonNull(def.Type) && len(path) > 0 {
				state.markNulled(path)
				return nil
			}
			completed = nil
		}
		result[group.name] = completed
	}
	return result
}

// completeAsyncField writes one batch result into data. A failed Non-Null
// field nulls its root field and everything still queued below it.
func completeAsyncField(state *executionState, at asyncTask, res AsyncResolveResult, data map[string]any) {
	if state.isNulled(at.path) {
		return
	}
	var completed any
	if res.Error != nil {
		state.errors = append(state.errors, fieldError(res.Error, at.path))
	} else {
		completed = completeValue(state, at.typ, at.fields, res.Value, at.path)
	}
	if isNullish(completed) && schema.IsNonNull(at.typ) {
		root := at.path.root()
		setAt(data, root, nil)
		state.markNulled(root)
		return
	}
	if isNullish(completed) {
		completed = nil
	}
	setAt(data, at.path, completed)
}

// getOperation picks the operation to run. Without a name the document must
// hold exactly one operation.
func getOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName == "" {
		switch len(document.Operations) {
		case 0:
			return nil, fmt.Errorf("document contains no operation")
		case 1:
			return document.Operations[0], nil
		}
		return nil, fmt.Errorf("must provide operation name if query contains multiple operations")
	}
	if op := document.Operations.ForName(operationName); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("unknown operation named %q", operationName)
}

func (s *executionState) addError(message string, path Path) {
	s.errors = append(s.errors, GraphQLError{Message: message, Path: path})
}
