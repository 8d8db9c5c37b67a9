package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/ast"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/astparser"

	"github.com/graphmux/graphmux/internal/middleware"
	"github.com/graphmux/graphmux/internal/schemagen"
)

// executor runs one GraphQL operation against a compiled schema, calling every
// field through the middleware chain. One executor instance exists per view.
type executor struct {
	logger zerolog.Logger
}

func newExecutor(logger zerolog.Logger) *executor {
	return &executor{logger: logger.With().Str("component", "executor").Logger()}
}

// executionInput is everything one operation needs. Resolver is the fully
// chained resolver: middleware around the schema's base resolver, with
// introspection already folded into the base.
type executionInput struct {
	SchemaName    string
	Schema        *schemagen.CompiledSchema
	Resolver      middleware.Resolver
	Query         string
	OperationName string
	Variables     map[string]any
	ClientKey     string
}

// execute parses, selects the operation, and resolves each root selection.
// Resolver errors become entries in the errors array with the field nulled out;
// they never abort sibling fields.
func (e *executor) execute(ctx context.Context, in executionInput) *graphqlResponse {
	if strings.TrimSpace(in.Query) == "" {
		return &graphqlResponse{Errors: []graphqlError{
			codedError(codeBadRequest, "no GraphQL query provided"),
		}}
	}

	doc, report := astparser.ParseGraphqlDocumentString(in.Query)
	if report.HasErrors() {
		return &graphqlResponse{Errors: []graphqlError{
			codedError("GRAPHQL_PARSE_FAILED", report.Error()),
		}}
	}

	opRef, opType := findOperation(&doc, in.OperationName)
	if opRef < 0 {
		message := "no operation found in query"
		if in.OperationName != "" {
			message = fmt.Sprintf("operation %q not found in query", in.OperationName)
		}
		return &graphqlResponse{Errors: []graphqlError{codedError(codeBadRequest, message)}}
	}

	response := &graphqlResponse{Data: make(map[string]any)}
	op := doc.OperationDefinitions[opRef]
	if !op.HasSelections {
		return response
	}

	plugins := middleware.NewPluginContext()
	for _, selectionRef := range doc.SelectionSets[op.SelectionSet].SelectionRefs {
		e.resolveSelection(ctx, &doc, selectionRef, nil, nil, response, in, opRef, opType, plugins)
	}
	return response
}

// findOperation picks the operation to run: the named one, or the first when no
// name was supplied.
func findOperation(doc *ast.Document, operationName string) (int, string) {
	for i := range doc.OperationDefinitions {
		name := doc.OperationDefinitionNameString(i)
		if operationName != "" && name != operationName {
			continue
		}
		switch doc.OperationDefinitions[i].OperationType {
		case ast.OperationTypeMutation:
			return i, "mutation"
		case ast.OperationTypeSubscription:
			return i, "subscription"
		default:
			return i, "query"
		}
	}
	return -1, ""
}

// resolveSelection resolves one field selection into the response, recursing
// through sub-selections. root is the parent value, nil at the operation root.
func (e *executor) resolveSelection(
	ctx context.Context,
	doc *ast.Document,
	selectionRef int,
	root any,
	path *middleware.Path,
	response *graphqlResponse,
	in executionInput,
	opRef int,
	opType string,
	plugins *middleware.PluginContext,
) {
	selection := doc.Selections[selectionRef]
	if selection.Kind != ast.SelectionKindField {
		response.Errors = append(response.Errors,
			codedError(codeBadRequest, "fragments are not supported"))
		return
	}

	field := doc.Fields[selection.Ref]
	fieldName := doc.FieldNameString(selection.Ref)
	alias := fieldName
	if field.Alias.IsDefined {
		alias = doc.Input.ByteSliceString(field.Alias.Name)
	}
	fieldPath := &middleware.Path{Prev: path, Key: fieldName}
	target := response.Data

	args, err := e.fieldArguments(doc, field, in.Variables)
	if err != nil {
		response.Errors = append(response.Errors, e.fieldError(fieldPath, err))
		target[alias] = nil
		return
	}

	info := &middleware.ResolveInfo{
		Ctx:           ctx,
		SchemaName:    in.SchemaName,
		FieldName:     fieldName,
		OperationType: opType,
		OperationName: doc.OperationDefinitionNameString(opRef),
		Path:          fieldPath,
		Variables:     in.Variables,
		ClientKey:     in.ClientKey,
		Document:      doc,
		OperationRef:  opRef,
		Plugins:       plugins,
	}

	value, err := in.Resolver(root, info, args)
	if err != nil {
		response.Errors = append(response.Errors, e.fieldError(fieldPath, err))
		target[alias] = nil
		return
	}

	if !field.HasSelections {
		target[alias] = value
		return
	}
	target[alias] = e.project(ctx, doc, field.SelectionSet, value, fieldPath, response, in, opRef, opType, plugins)
}

// project applies a selection set to a resolved value, calling the chain for each
// nested field. Lists project element-wise.
func (e *executor) project(
	ctx context.Context,
	doc *ast.Document,
	selectionSet int,
	value any,
	path *middleware.Path,
	response *graphqlResponse,
	in executionInput,
	opRef int,
	opType string,
	plugins *middleware.PluginContext,
) any {
	switch v := value.(type) {
	case nil:
		return nil
	case []map[string]any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, e.project(ctx, doc, selectionSet, item, path, response, in, opRef, opType, plugins))
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, e.project(ctx, doc, selectionSet, item, path, response, in, opRef, opType, plugins))
		}
		return out
	case map[string]any:
		out := make(map[string]any)
		for _, selectionRef := range doc.SelectionSets[selectionSet].SelectionRefs {
			selection := doc.Selections[selectionRef]
			if selection.Kind != ast.SelectionKindField {
				continue
			}
			field := doc.Fields[selection.Ref]
			fieldName := doc.FieldNameString(selection.Ref)
			alias := fieldName
			if field.Alias.IsDefined {
				alias = doc.Input.ByteSliceString(field.Alias.Name)
			}
			fieldPath := &middleware.Path{Prev: path, Key: fieldName}

			args, err := e.fieldArguments(doc, field, in.Variables)
			if err != nil {
				response.Errors = append(response.Errors, e.fieldError(fieldPath, err))
				out[alias] = nil
				continue
			}

			info := &middleware.ResolveInfo{
				Ctx:           ctx,
				SchemaName:    in.SchemaName,
				FieldName:     fieldName,
				OperationType: opType,
				OperationName: doc.OperationDefinitionNameString(opRef),
				Path:          fieldPath,
				Variables:     in.Variables,
				ClientKey:     in.ClientKey,
				Document:      doc,
				OperationRef:  opRef,
				Plugins:       plugins,
			}
			nested, err := in.Resolver(v, info, args)
			if err != nil {
				response.Errors = append(response.Errors, e.fieldError(fieldPath, err))
				out[alias] = nil
				continue
			}
			if field.HasSelections {
				out[alias] = e.project(ctx, doc, field.SelectionSet, nested, fieldPath, response, in, opRef, opType, plugins)
			} else {
				out[alias] = nested
			}
		}
		return out
	default:
		// Scalar under a selection set; the validator normally rejects this.
		return v
	}
}

// fieldArguments materializes a field's arguments, substituting variables.
func (e *executor) fieldArguments(doc *ast.Document, field ast.Field, variables map[string]any) (map[string]any, error) {
	if len(field.Arguments.Refs) == 0 {
		return nil, nil
	}
	args := make(map[string]any, len(field.Arguments.Refs))
	for _, argRef := range field.Arguments.Refs {
		arg := doc.Arguments[argRef]
		value, err := resolveValue(doc, arg.Value, variables)
		if err != nil {
			return nil, err
		}
		args[doc.ArgumentNameString(argRef)] = value
	}
	return args, nil
}

// resolveValue converts an AST value into a Go value, substituting variables.
func resolveValue(doc *ast.Document, value ast.Value, variables map[string]any) (any, error) {
	switch value.Kind {
	case ast.ValueKindString:
		return doc.StringValueContentString(value.Ref), nil
	case ast.ValueKindInteger:
		raw := doc.IntValueRaw(value.Ref)
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case ast.ValueKindFloat:
		raw := doc.FloatValueRaw(value.Ref)
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case ast.ValueKindBoolean:
		return bool(doc.BooleanValues[value.Ref]), nil
	case ast.ValueKindNull:
		return nil, nil
	case ast.ValueKindEnum:
		return doc.Input.ByteSliceString(doc.EnumValues[value.Ref].Name), nil
	case ast.ValueKindObject:
		obj := make(map[string]any)
		for _, fieldRef := range doc.ObjectValues[value.Ref].Refs {
			fieldValue, err := resolveValue(doc, doc.ObjectFields[fieldRef].Value, variables)
			if err != nil {
				return nil, err
			}
			obj[doc.ObjectFieldNameString(fieldRef)] = fieldValue
		}
		return obj, nil
	case ast.ValueKindList:
		list := make([]any, 0, len(doc.ListValues[value.Ref].Refs))
		for _, valueRef := range doc.ListValues[value.Ref].Refs {
			item, err := resolveValue(doc, doc.Values[valueRef], variables)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	case ast.ValueKindVariable:
		name := doc.VariableValueNameString(value.Ref)
		if v, ok := variables[name]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("variable $%s not provided", name)
	default:
		return nil, fmt.Errorf("unsupported value kind %v", value.Kind)
	}
}

// fieldError renders a resolver error into the response errors array with its
// field path and a code derived from the error kind.
func (e *executor) fieldError(path *middleware.Path, err error) graphqlError {
	entry := graphqlError{
		Message:    err.Error(),
		Path:       pathSegments(path),
		Extensions: map[string]any{},
	}

	var perr *middleware.PermissionError
	var verr *middleware.ValidationError
	switch {
	case errors.As(err, &perr):
		entry.Extensions["code"] = perr.Code
	case errors.As(err, &verr):
		entry.Extensions["code"] = verr.Code
		if len(verr.Violations) > 0 {
			entry.Extensions["violations"] = verr.Violations
		}
	default:
		entry.Extensions["code"] = codeInternalError
	}
	return entry
}

func pathSegments(path *middleware.Path) []any {
	var reversed []string
	for p := path; p != nil; p = p.Prev {
		reversed = append(reversed, p.Key)
	}
	out := make([]any, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		out = append(out, reversed[i])
	}
	return out
}
