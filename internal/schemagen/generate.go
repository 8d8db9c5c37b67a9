package schemagen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphmux/graphmux/internal/catalog"
	"github.com/graphmux/graphmux/internal/settings"
)

// GenerateSDL renders the model scope into GraphQL SDL according to the generator
// settings. The output always includes the introspection meta types so a parsed
// document can validate introspection queries.
func GenerateSDL(models []ScopedModel, cfg GeneratorSettings) string {
	var sb strings.Builder

	sb.WriteString("# Built-in scalar types\n")
	sb.WriteString("scalar String\n")
	sb.WriteString("scalar Int\n")
	sb.WriteString("scalar Float\n")
	sb.WriteString("scalar Boolean\n")
	sb.WriteString("scalar ID\n\n")

	sb.WriteString("schema {\n")
	sb.WriteString("  query: Query\n")
	sb.WriteString("  mutation: Mutation\n")
	if cfg.Subscription.EnableSubscriptions {
		sb.WriteString("  subscription: Subscription\n")
	}
	sb.WriteString("}\n\n")

	seen := make(map[string]bool)
	var queryFields, mutationFields, subscriptionFields []string

	for _, sm := range models {
		model := sm.Model
		if seen[model.Name] {
			continue
		}
		seen[model.Name] = true

		generateObjectType(&sb, model, cfg)
		if cfg.Mutation.EnableCreate || cfg.Mutation.EnableUpdate {
			generateInputType(&sb, model, cfg)
		}
		if cfg.Filtering.EnableFiltering {
			generateFilterInput(&sb, model, cfg)
		}

		queryFields = append(queryFields, queryFieldsFor(model, cfg)...)
		mutationFields = append(mutationFields, mutationFieldsFor(model, cfg)...)
		subscriptionFields = append(subscriptionFields, subscriptionFieldsFor(model, cfg)...)
	}

	sort.Strings(queryFields)
	sort.Strings(mutationFields)
	sort.Strings(subscriptionFields)

	writeRootType(&sb, "Query", queryFields, true)
	writeRootType(&sb, "Mutation", mutationFields, false)
	if cfg.Subscription.EnableSubscriptions {
		writeRootType(&sb, "Subscription", subscriptionFields, false)
	}

	sb.WriteString(introspectionSDL)

	return sb.String()
}

// GeneratorSettings bundles the typed settings blocks the generator consumes.
type GeneratorSettings struct {
	Type         settings.TypeGeneratorSettings
	Query        settings.QueryGeneratorSettings
	Mutation     settings.MutationGeneratorSettings
	Filtering    settings.FilteringSettings
	Subscription settings.SubscriptionGeneratorSettings
}

func generateObjectType(sb *strings.Builder, model catalog.Model, cfg GeneratorSettings) {
	if cfg.Type.GenerateDescriptions && model.Doc != "" {
		fmt.Fprintf(sb, "\"\"\"%s\"\"\"\n", model.Doc)
	}
	fmt.Fprintf(sb, "type %s {\n", model.Name)
	for _, field := range visibleFields(model, cfg) {
		if cfg.Type.GenerateDescriptions && field.Doc != "" {
			fmt.Fprintf(sb, "  \"\"\"%s\"\"\"\n", field.Doc)
		}
		fmt.Fprintf(sb, "  %s: %s\n", field.Name, fieldType(field, cfg))
	}
	sb.WriteString("}\n\n")
}

func generateInputType(sb *strings.Builder, model catalog.Model, cfg GeneratorSettings) {
	fmt.Fprintf(sb, "input %sInput {\n", model.Name)
	for _, field := range visibleFields(model, cfg) {
		if field.Name == "id" || field.Relation != "" {
			continue
		}
		typ := scalarType(field.Type)
		if field.Required {
			typ += "!"
		}
		fmt.Fprintf(sb, "  %s: %s\n", field.Name, typ)
	}
	sb.WriteString("}\n\n")
}

func generateFilterInput(sb *strings.Builder, model catalog.Model, cfg GeneratorSettings) {
	fmt.Fprintf(sb, "input %sFilterInput {\n", model.Name)
	for _, field := range visibleFields(model, cfg) {
		if field.Relation != "" {
			continue
		}
		base := scalarType(field.Type)
		for _, op := range cfg.Filtering.AllowedOperators {
			switch op {
			case "in":
				fmt.Fprintf(sb, "  %s_in: [%s]\n", field.Name, base)
			case "contains":
				if base == "String" {
					fmt.Fprintf(sb, "  %s_contains: String\n", field.Name)
				}
			default:
				fmt.Fprintf(sb, "  %s_%s: %s\n", field.Name, op, base)
			}
		}
	}
	sb.WriteString("}\n\n")
}

func queryFieldsFor(model catalog.Model, cfg GeneratorSettings) []string {
	var fields []string
	name := lowerFirst(model.Name)

	if cfg.Query.EnableGetQueries {
		fields = append(fields, fmt.Sprintf("%s(id: ID!): %s", name, model.Name))
	}
	if cfg.Query.EnableListQueries {
		args := []string{}
		if cfg.Filtering.EnableFiltering {
			args = append(args, fmt.Sprintf("filter: %sFilterInput", model.Name))
		}
		if cfg.Query.EnablePagination {
			args = append(args, "limit: Int", "offset: Int")
		}
		if cfg.Query.EnableOrdering {
			args = append(args, "orderBy: String")
		}
		argList := ""
		if len(args) > 0 {
			argList = "(" + strings.Join(args, ", ") + ")"
		}
		fields = append(fields, fmt.Sprintf("all%s%s: [%s]", pluralize(model.Name), argList, model.Name))
	}
	return fields
}

func mutationFieldsFor(model catalog.Model, cfg GeneratorSettings) []string {
	var fields []string
	if cfg.Mutation.EnableCreate {
		fields = append(fields, fmt.Sprintf("create%s(input: %sInput!): %s", model.Name, model.Name, model.Name))
	}
	if cfg.Mutation.EnableUpdate {
		fields = append(fields, fmt.Sprintf("update%s(id: ID!, input: %sInput!): %s", model.Name, model.Name, model.Name))
	}
	if cfg.Mutation.EnableDelete {
		fields = append(fields, fmt.Sprintf("delete%s(id: ID!): Boolean", model.Name))
	}
	return fields
}

func subscriptionFieldsFor(model catalog.Model, cfg GeneratorSettings) []string {
	if !cfg.Subscription.EnableSubscriptions {
		return nil
	}
	var fields []string
	if cfg.Subscription.OnCreate {
		fields = append(fields, fmt.Sprintf("on%sCreated: %s", model.Name, model.Name))
	}
	if cfg.Subscription.OnUpdate {
		fields = append(fields, fmt.Sprintf("on%sUpdated: %s", model.Name, model.Name))
	}
	if cfg.Subscription.OnDelete {
		fields = append(fields, fmt.Sprintf("on%sDeleted: ID", model.Name))
	}
	return fields
}

func writeRootType(sb *strings.Builder, name string, fields []string, withIntrospection bool) {
	fmt.Fprintf(sb, "type %s {\n", name)
	if withIntrospection {
		sb.WriteString("  __schema: __Schema!\n")
		sb.WriteString("  __type(name: String!): __Type\n")
		sb.WriteString("  __typename: String!\n")
	}
	if len(fields) == 0 {
		sb.WriteString("  _empty: String\n")
	} else {
		for _, field := range fields {
			sb.WriteString("  ")
			sb.WriteString(field)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n\n")
}

func visibleFields(model catalog.Model, cfg GeneratorSettings) []catalog.Field {
	excluded := make(map[string]bool, len(cfg.Type.ExcludeFields))
	for _, f := range cfg.Type.ExcludeFields {
		excluded[f] = true
	}
	var out []catalog.Field
	for _, field := range model.Fields {
		if excluded[field.Name] {
			continue
		}
		if field.Relation != "" && !cfg.Type.IncludeRelations {
			continue
		}
		out = append(out, field)
	}
	return out
}

func fieldType(field catalog.Field, cfg GeneratorSettings) string {
	if field.Relation != "" {
		if field.Type == "many" {
			return fmt.Sprintf("[%s]", field.Relation)
		}
		return field.Relation
	}
	typ := scalarType(field.Type)
	if field.Required {
		typ += "!"
	}
	return typ
}

func scalarType(t string) string {
	switch t {
	case "ID", "String", "Int", "Float", "Boolean":
		return t
	case "Long":
		return "Int"
	case "Double":
		return "Float"
	default:
		return "String"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func pluralize(s string) string {
	switch {
	case strings.HasSuffix(s, "y"):
		return s[:len(s)-1] + "ies"
	case strings.HasSuffix(s, "s"):
		return s + "es"
	default:
		return s + "s"
	}
}

const introspectionSDL = `# Introspection types
type __Schema {
  types: [__Type!]!
  queryType: __Type!
  mutationType: __Type
  subscriptionType: __Type
  directives: [__Directive!]!
}

type __Type {
  kind: __TypeKind!
  name: String
  description: String
  fields(includeDeprecated: Boolean = false): [__Field!]
  interfaces: [__Type!]
  possibleTypes: [__Type!]
  enumValues(includeDeprecated: Boolean = false): [__EnumValue!]
  inputFields: [__InputValue!]
  ofType: __Type
}

type __Field {
  name: String!
  description: String
  args: [__InputValue!]!
  type: __Type!
  isDeprecated: Boolean!
  deprecationReason: String
}

type __InputValue {
  name: String!
  description: String
  type: __Type!
  defaultValue: String
}

type __EnumValue {
  name: String!
  description: String
  isDeprecated: Boolean!
  deprecationReason: String
}

enum __TypeKind {
  SCALAR
  OBJECT
  INTERFACE
  UNION
  ENUM
  INPUT_OBJECT
  LIST
  NON_NULL
}

type __Directive {
  name: String!
  description: String
  locations: [__DirectiveLocation!]!
  args: [__InputValue!]!
}

enum __DirectiveLocation {
  QUERY
  MUTATION
  SUBSCRIPTION
  FIELD
  FRAGMENT_DEFINITION
  FRAGMENT_SPREAD
  INLINE_FRAGMENT
  SCHEMA
  SCALAR
  OBJECT
  FIELD_DEFINITION
  ARGUMENT_DEFINITION
  INTERFACE
  UNION
  ENUM
  ENUM_VALUE
  INPUT_OBJECT
  INPUT_FIELD_DEFINITION
}
`
