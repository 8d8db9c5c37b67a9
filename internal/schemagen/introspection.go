package schemagen

import "strings"

// IntrospectionData returns the __schema introspection value for this builder's
// model scope. The shape covers what GraphiQL and schema-diff tooling consume;
// directives are intentionally empty.
func (b *Builder) IntrospectionData() map[string]any {
	schemaInfo := map[string]any{
		"queryType":  map[string]any{"name": "Query"},
		"types":      b.introspectionTypes(),
		"directives": []any{},
	}
	if b.cfg.Mutation.EnableCreate || b.cfg.Mutation.EnableUpdate || b.cfg.Mutation.EnableDelete {
		schemaInfo["mutationType"] = map[string]any{"name": "Mutation"}
	}
	if b.cfg.Subscription.EnableSubscriptions {
		schemaInfo["subscriptionType"] = map[string]any{"name": "Subscription"}
	}
	return schemaInfo
}

// TypeByName returns the introspection value for one named type, or nil.
func (b *Builder) TypeByName(name string) map[string]any {
	for _, t := range b.introspectionTypes() {
		typ, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if typeName, _ := typ["name"].(string); strings.EqualFold(typeName, name) {
			return typ
		}
	}
	return nil
}

func (b *Builder) introspectionTypes() []any {
	types := []any{
		scalarTypeInfo("String", "The String scalar type"),
		scalarTypeInfo("Int", "The Int scalar type"),
		scalarTypeInfo("Float", "The Float scalar type"),
		scalarTypeInfo("Boolean", "The Boolean scalar type"),
		scalarTypeInfo("ID", "The ID scalar type"),
		scalarTypeInfo("DateTime", "An ISO-8601 timestamp"),
		scalarTypeInfo("JSON", "An arbitrary JSON value"),
	}

	for _, sm := range b.models {
		model := sm.Model

		fields := make([]any, 0, len(model.Fields))
		inputFields := make([]any, 0, len(model.Fields))
		for _, field := range visibleFields(model, b.cfg) {
			entry := map[string]any{
				"name":        field.Name,
				"type":        typeRef(scalarType(field.Type), field.Required),
				"description": field.Doc,
			}
			fields = append(fields, entry)
			if field.Name != "id" {
				inputFields = append(inputFields, entry)
			}
		}

		types = append(types, map[string]any{
			"kind":        "OBJECT",
			"name":        model.Name,
			"description": model.Doc,
			"fields":      fields,
		})
		types = append(types, map[string]any{
			"kind":        "INPUT_OBJECT",
			"name":        model.Name + "Input",
			"description": "Input for creating or updating a " + model.Name,
			"inputFields": inputFields,
		})
		if b.cfg.Filtering.EnableFiltering {
			types = append(types, map[string]any{
				"kind":        "INPUT_OBJECT",
				"name":        model.Name + "FilterInput",
				"description": "Filter arguments for " + model.Name + " list queries",
				"inputFields": []any{},
			})
		}
	}
	return types
}

func scalarTypeInfo(name, description string) map[string]any {
	return map[string]any{
		"kind":        "SCALAR",
		"name":        name,
		"description": description,
	}
}

func typeRef(name string, required bool) map[string]any {
	ref := map[string]any{"kind": "SCALAR", "name": name, "ofType": nil}
	if required {
		return map[string]any{"kind": "NON_NULL", "name": nil, "ofType": ref}
	}
	return ref
}
