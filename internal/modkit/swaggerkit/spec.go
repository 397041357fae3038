package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

type object = map[string]any

// patchSpec pins the document to OAS 3.0.3 (the bundled UI cannot render 3.1), sets the
// server base url and gives every operation the envelope used for 422 and 500 replies
func patchSpec(raw, baseURL, titleSuffix string) ([]byte, error) {
	var spec object
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, err
	}

	delete(spec, "swagger")
	if v, _ := spec["openapi"].(string); !strings.HasPrefix(v, "3.0") {
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{object{"url": baseURL}}
	}
	if info, ok := spec["info"].(object); ok && titleSuffix != "" {
		if title, ok := info["title"].(string); ok {
			info["title"] = title + " " + titleSuffix
		}
	}

	schemas := child(child(spec, "components"), "schemas")
	if _, ok := schemas["Envelope"]; !ok {
		schemas["Envelope"] = envelopeSchema
	}
	addDefault(spec, http.StatusUnprocessableEntity, object{
		"status_code": 422, "status": "Unprocessable Entity", "code": "reference_data",
		"error": "no threshold rule for NV in 2017", "request_id": "host/abc-000001",
	})
	addDefault(spec, http.StatusInternalServerError, object{
		"status_code": 500, "status": "Internal Server Error", "code": "panic",
		"error": "internal error", "request_id": "host/abc-000001",
	})
	return json.Marshal(spec)
}

var envelopeSchema = object{
	"type":        "object",
	"description": "Response envelope; code and field are set on failures",
	"properties": object{
		"status_code": object{"type": "integer", "format": "int32"},
		"status":      object{"type": "string"},
		"code":        object{"type": "string"},
		"field":       object{"type": "string"},
		"error":       object{"type": "string"},
		"request_id":  object{"type": "string"},
		"data":        object{},
	},
	"required": []any{"status_code", "status"},
}

// child returns m[key] as an object, creating it when missing
func child(m object, key string) object {
	c, ok := m[key].(object)
	if !ok {
		c = object{}
		m[key] = c
	}
	return c
}

// addDefault documents status on every operation that does not already
func addDefault(spec object, status int, example object) {
	key := strconv.Itoa(status)
	resp := object{
		"description": http.StatusText(status),
		"content": object{"application/json": object{
			"schema":  object{"$ref": "#/components/schemas/Envelope"},
			"example": example,
		}},
	}
	paths, _ := spec["paths"].(object)
	for _, p := range paths {
		ops, ok := p.(object)
		if !ok {
			continue
		}
		for _, o := range ops {
			if op, ok := o.(object); ok {
				if responses := child(op, "responses"); responses[key] == nil {
					responses[key] = resp
				}
			}
		}
	}
}
