package docbuilder

import (
	"fmt"
	"strconv"
)

// The helpers below read the loosely typed Response field. Values arrive
// either built in Go ([]string, map[string]FileUpload) or decoded from JSON
// and YAML ([]any, map[string]any).

// ResponseString returns the response as a string.
func (v *AnswerValue) ResponseString() (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.Response.(string)
	return s, ok
}

// ResponseStrings returns the response as a list of strings. Lists that
// contain anything other than strings are rejected.
func (v *AnswerValue) ResponseStrings() ([]string, bool) {
	if v == nil {
		return nil, false
	}
	switch response := v.Response.(type) {
	case []string:
		return response, true
	case []any:
		values := make([]string, 0, len(response))
		for _, item := range response {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			values = append(values, s)
		}
		return values, true
	}
	return nil, false
}

// ResponseFiles returns the response as a file id to file map. ok is false
// when the response is not an object. Entries whose value is not an object
// with a string name are returned with valid set to false.
func (v *AnswerValue) ResponseFiles() (files map[string]FileUpload, valid bool, ok bool) {
	if v == nil {
		return nil, false, false
	}
	switch response := v.Response.(type) {
	case map[string]FileUpload:
		return response, true, true
	case map[string]any:
		files = make(map[string]FileUpload, len(response))
		valid = true
		for key, raw := range response {
			name, isName := fileName(raw)
			if !isName {
				valid = false
			}
			files[key] = FileUpload{Name: name}
		}
		return files, valid, true
	case map[any]any:
		files = make(map[string]FileUpload, len(response))
		valid = true
		for rawKey, raw := range response {
			key, isKey := fileKey(rawKey)
			name, isName := fileName(raw)
			if !isKey || !isName {
				valid = false
			}
			files[key] = FileUpload{Name: name}
		}
		return files, valid, true
	}
	return nil, false, false
}

// fileKey normalises keys of YAML mappings decoded with non-string keys.
func fileKey(raw any) (string, bool) {
	switch key := raw.(type) {
	case string:
		return key, true
	case int:
		return strconv.Itoa(key), true
	case int64:
		return strconv.FormatInt(key, 10), true
	case uint64:
		return strconv.FormatUint(key, 10), true
	}
	return fmt.Sprint(raw), false
}

func fileName(raw any) (string, bool) {
	switch file := raw.(type) {
	case FileUpload:
		return file.Name, true
	case *FileUpload:
		if file == nil {
			return "", false
		}
		return file.Name, true
	case map[string]any:
		name, ok := file["name"].(string)
		return name, ok
	case map[any]any:
		name, ok := file["name"].(string)
		return name, ok
	}
	return "", false
}

// OtherResponseString returns the free-text "other" response.
func (v *AnswerValue) OtherResponseString() (string, bool) {
	if v == nil {
		return "", false
	}
	switch other := v.OtherResponse.(type) {
	case string:
		return other, true
	case *string:
		if other == nil {
			return "", false
		}
		return *other, true
	}
	return "", false
}

// Clone returns a deep copy of the answer value.
func (v *AnswerValue) Clone() *AnswerValue {
	if v == nil {
		return nil
	}
	return &AnswerValue{
		Response:      cloneAny(v.Response),
		OtherResponse: cloneAny(v.OtherResponse),
	}
}

// Clone returns a deep copy of the answer.
func (a *Answer) Clone() *Answer {
	if a == nil {
		return nil
	}
	return &Answer{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Value:      a.Value.Clone(),
	}
}

func cloneAny(value any) any {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneAny(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneAny(item)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for key, item := range v {
			out[key] = cloneAny(item)
		}
		return out
	case map[string]FileUpload:
		out := make(map[string]FileUpload, len(v))
		for key, item := range v {
			out[key] = item
		}
		return out
	case *string:
		if v == nil {
			return v
		}
		s := *v
		return &s
	}
	return value
}
