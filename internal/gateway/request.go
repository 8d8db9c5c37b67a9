package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// maxMultipartMemory bounds the in-memory part of multipart parsing; larger file
// parts spill to disk.
const maxMultipartMemory = 32 << 20

// parsedBody is the normalized form of one incoming request body: one or more
// GraphQL payloads plus whether the wire shape was a JSON array.
type parsedBody struct {
	payloads []map[string]any
	isBatch  bool
}

// parseBody normalizes every supported wire format into payload maps. The raw
// body is only read for non-multipart content types; multipart requests go
// through the form parser so the body stream is consumed exactly once.
func parseBody(r *http.Request) (*parsedBody, error) {
	if r.Method == http.MethodGet {
		return parseQueryString(r), nil
	}

	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	switch {
	case mediaType == "application/json" || mediaType == "":
		return parseJSONBody(r)
	case mediaType == "application/graphql":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		return &parsedBody{payloads: []map[string]any{{"query": string(body)}}}, nil
	case mediaType == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("malformed form body: %w", err)
		}
		return formPayload(r.PostForm.Get("query"), r.PostForm.Get("variables"), r.PostForm.Get("operationName"))
	case strings.HasPrefix(mediaType, "multipart/"):
		return parseMultipartBody(r)
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

func parseQueryString(r *http.Request) *parsedBody {
	q := r.URL.Query()
	payload := map[string]any{}
	if query := q.Get("query"); query != "" {
		payload["query"] = query
	}
	if name := q.Get("operationName"); name != "" {
		payload["operationName"] = name
	}
	if raw := q.Get("variables"); raw != "" {
		var variables map[string]any
		if err := json.Unmarshal([]byte(raw), &variables); err == nil {
			payload["variables"] = variables
		}
	}
	return &parsedBody{payloads: []map[string]any{payload}}
}

func parseJSONBody(r *http.Request) (*parsedBody, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("malformed JSON body: %w", err)
	}

	switch v := raw.(type) {
	case map[string]any:
		return &parsedBody{payloads: []map[string]any{v}}, nil
	case []any:
		payloads := make([]map[string]any, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("batch entries must be JSON objects")
			}
			payloads = append(payloads, obj)
		}
		return &parsedBody{payloads: payloads, isBatch: true}, nil
	default:
		return nil, fmt.Errorf("request body must be a JSON object or array")
	}
}

func formPayload(query, variables, operationName string) (*parsedBody, error) {
	payload := map[string]any{"query": query}
	if operationName != "" {
		payload["operationName"] = operationName
	}
	if variables != "" {
		var vars map[string]any
		if err := json.Unmarshal([]byte(variables), &vars); err != nil {
			return nil, fmt.Errorf("malformed variables: %w", err)
		}
		payload["variables"] = vars
	}
	return &parsedBody{payloads: []map[string]any{payload}}, nil
}

// parseMultipartBody handles both plain form fields and the GraphQL multipart
// upload convention (operations + map + file parts).
func parseMultipartBody(r *http.Request) (*parsedBody, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, fmt.Errorf("malformed multipart body: %w", err)
	}

	operations := r.FormValue("operations")
	if operations == "" {
		return formPayload(r.FormValue("query"), r.FormValue("variables"), r.FormValue("operationName"))
	}

	var opsDoc any
	if err := json.Unmarshal([]byte(operations), &opsDoc); err != nil {
		return nil, fmt.Errorf("malformed operations document: %w", err)
	}

	if fileMap := r.FormValue("map"); fileMap != "" {
		var targets map[string][]string
		if err := json.Unmarshal([]byte(fileMap), &targets); err != nil {
			return nil, fmt.Errorf("malformed upload map: %w", err)
		}
		for part, paths := range targets {
			file := uploadedFile(r, part)
			if file == nil {
				return nil, fmt.Errorf("upload map references missing part %q", part)
			}
			for _, path := range paths {
				if err := setUploadTarget(opsDoc, path, file); err != nil {
					return nil, err
				}
			}
		}
	}

	switch v := opsDoc.(type) {
	case map[string]any:
		return &parsedBody{payloads: []map[string]any{v}}, nil
	case []any:
		payloads := make([]map[string]any, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("batch operations entries must be JSON objects")
			}
			payloads = append(payloads, obj)
		}
		return &parsedBody{payloads: payloads, isBatch: true}, nil
	default:
		return nil, fmt.Errorf("operations document must be a JSON object or array")
	}
}

func uploadedFile(r *http.Request, part string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[part]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

// splitUploadPath splits an upload map path into segments, accepting both dotted
// numeric segments ("variables.files.0") and bracketed ones ("variables.files[0]").
func splitUploadPath(path string) []string {
	var segments []string
	for _, part := range strings.Split(path, ".") {
		for {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				if part != "" {
					segments = append(segments, part)
				}
				break
			}
			if open > 0 {
				segments = append(segments, part[:open])
			}
			end := strings.IndexByte(part, ']')
			if end < 0 {
				segments = append(segments, part[open+1:])
				break
			}
			segments = append(segments, part[open+1:end])
			part = part[end+1:]
			if part == "" {
				break
			}
		}
	}
	return segments
}

// setUploadTarget rewrites one upload map path inside the operations document to
// point at the uploaded file.
func setUploadTarget(doc any, path string, file *multipart.FileHeader) error {
	segments := splitUploadPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("empty upload map path")
	}

	current := doc
	for i, segment := range segments {
		last := i == len(segments)-1

		switch node := current.(type) {
		case map[string]any:
			if last {
				node[segment] = file
				return nil
			}
			next, ok := node[segment]
			if !ok {
				return fmt.Errorf("upload map path %q does not exist in operations", path)
			}
			current = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return fmt.Errorf("upload map path %q has invalid array index %q", path, segment)
			}
			if last {
				node[index] = file
				return nil
			}
			current = node[index]
		default:
			return fmt.Errorf("upload map path %q traverses a non-container value", path)
		}
	}
	return nil
}
