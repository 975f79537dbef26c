package content

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hanpama/contentgraph/internal/datasource"
	"github.com/hanpama/contentgraph/internal/mutation"
	"github.com/hanpama/contentgraph/internal/registry"
)

// registerMutations registers create, update and delete mutations for each
// post type when the store accepts writes.
func (b *Builder) registerMutations() error {
	writer, ok := b.store.(datasource.Writer)
	if !ok {
		b.log.Debug("store is read-only, skipping content mutations", zap.String("store", b.store.Name()))
		return nil
	}
	for _, p := range b.visiblePostTypes() {
		single := registry.UcFirst(p.single())
		input := b.postInputFields(p)
		withID := registry.Fields{"id": {Type: "ID!", Description: fmt.Sprintf("The ID of the %s object", p.single())}}
		for k, v := range input {
			withID[k] = v
		}
		output := registry.Fields{
			p.single(): {Type: p.TypeName(), Description: fmt.Sprintf("The %s object after the mutation", p.single())},
		}
		specs := []mutation.Spec{
			{
				Name:                "Create" + single,
				Description:         fmt.Sprintf("The create%s mutation", single),
				InputFields:         input,
				OutputFields:        output,
				MutateAndGetPayload: b.createNode(writer, p),
			},
			{
				Name:                "Update" + single,
				Description:         fmt.Sprintf("The update%s mutation", single),
				InputFields:         withID,
				OutputFields:        output,
				MutateAndGetPayload: b.updateNode(writer, p),
			},
			{
				Name:        "Delete" + single,
				Description: fmt.Sprintf("The delete%s mutation", single),
				InputFields: registry.Fields{
					"id": {Type: "ID!", Description: fmt.Sprintf("The ID of the %s to delete", p.single())},
				},
				OutputFields: registry.Fields{
					p.single():  {Type: p.TypeName(), Description: "The object before it was deleted"},
					"deletedId": {Type: "ID", Description: "The ID of the deleted object"},
				},
				MutateAndGetPayload: b.deleteNode(writer, p),
			},
		}
		for _, spec := range specs {
			if b.requireAuth {
				spec.Auth = requireViewer(spec.Name)
			}
			m, err := mutation.Register(b.reg, spec, b.hooks)
			if err != nil {
				return err
			}
			b.mutations = append(b.mutations, m)
		}
	}
	return nil
}

func (b *Builder) postInputFields(p PostType) registry.Fields {
	fields := registry.Fields{
		"title":   {Type: "String", Description: "The title of the object"},
		"content": {Type: "String", Description: "The content of the object"},
		"excerpt": {Type: "String", Description: "The excerpt of the object"},
		"slug":    {Type: "String", Description: "The slug of the object"},
		"date":    {Type: "String", Description: "The date of the object"},
		"status":  {Type: "PostStatusEnum", Description: "The status of the object"},
	}
	if !b.excluded(userType) {
		fields["authorId"] = &registry.FieldConfig{Type: "ID", Description: "The userId to assign as the author of the object"}
	}
	if p.Hierarchical {
		fields["parentId"] = &registry.FieldConfig{Type: "ID", Description: "The ID of the parent object"}
	}
	for _, taxName := range p.Taxonomies {
		t, _ := b.model.taxonomy(taxName)
		if !shown(t.ShowInGraphQL) || b.excluded(t.TypeName()) {
			continue
		}
		fields[t.plural()] = &registry.FieldConfig{Type: "[ID]", Description: fmt.Sprintf("The ids of the %s assigned to the object", t.plural())}
	}
	for _, f := range p.Fields {
		fields[f.Name] = &registry.FieldConfig{Type: orDefault(f.Type, "String"), Description: f.Description}
	}
	return fields
}

func requireViewer(name string) mutation.AuthFunc {
	return func(ctx context.Context, _ map[string]any) error {
		if ViewerFrom(ctx) == "" {
			return fmt.Errorf("%w: you must be logged in to %s", ErrUnauthorized, name)
		}
		return nil
	}
}

// nodeData copies writable input into node data. References are stored as
// global ids.
func (b *Builder) nodeData(p PostType, data, input map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	refs := map[string]string{"authorId": userType, "parentId": p.TypeName()}
	for _, taxName := range p.Taxonomies {
		if t, ok := b.model.taxonomy(taxName); ok {
			refs[t.plural()] = t.TypeName()
		}
	}
	for k, v := range input {
		switch k {
		case "id", mutation.ClientMutationID:
			continue
		case "status":
			if v != nil {
				v = statusValue(v)
			}
		}
		if typeName, ok := refs[k]; ok && v != nil {
			ids := idList(v, typeName)
			if _, single := v.(string); single && len(ids) == 1 {
				v = ids[0]
			} else {
				list := make([]any, len(ids))
				for i, id := range ids {
					list[i] = id
				}
				v = list
			}
		}
		data[k] = v
	}
	return data
}

func (b *Builder) createNode(w datasource.Writer, p PostType) mutation.MutateFunc {
	return func(ctx context.Context, input map[string]any, _ registry.ResolveInfo) (map[string]any, error) {
		data := b.nodeData(p, nil, input)
		if _, ok := data["status"]; !ok {
			data["status"] = "draft"
		}
		saved, err := w.SaveNode(ctx, &datasource.Node{Type: p.TypeName(), Data: data})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.single(), err)
		}
		b.loader(ctx).Prime(saved)
		return map[string]any{p.single(): saved}, nil
	}
}

func (b *Builder) updateNode(w datasource.Writer, p PostType) mutation.MutateFunc {
	return func(ctx context.Context, input map[string]any, _ registry.ResolveInfo) (map[string]any, error) {
		existing, err := b.ownNode(ctx, p, input["id"])
		if err != nil {
			return nil, err
		}
		updated := existing.Clone()
		updated.Data = b.nodeData(p, updated.Data, input)
		saved, err := w.SaveNode(ctx, updated)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", p.single(), err)
		}
		l := b.loader(ctx)
		l.Clear(saved.ID)
		l.Prime(saved)
		return map[string]any{p.single(): saved}, nil
	}
}

func (b *Builder) deleteNode(w datasource.Writer, p PostType) mutation.MutateFunc {
	return func(ctx context.Context, input map[string]any, _ registry.ResolveInfo) (map[string]any, error) {
		existing, err := b.ownNode(ctx, p, input["id"])
		if err != nil {
			return nil, err
		}
		deleted, err := w.DeleteNode(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("delete %s: %w", p.single(), err)
		}
		b.loader(ctx).Clear(existing.ID)
		return map[string]any{p.single(): deleted, "deletedId": existing.ID}, nil
	}
}

// ownNode loads the node named by id and checks it belongs to p.
func (b *Builder) ownNode(ctx context.Context, p PostType, id any) (*datasource.Node, error) {
	gid := nodeID(fmt.Sprint(id), p.TypeName())
	nodes, err := b.store.LoadNodes(ctx, []string{gid})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 || nodes[0] == nil || !sameType(nodes[0].Type, p.TypeName()) {
		return nil, fmt.Errorf("%w: no %s with id %v", datasource.ErrNotFound, p.single(), id)
	}
	return nodes[0], nil
}

func sameType(a, b string) bool { return registry.Key(a) == registry.Key(b) }
