package builder

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/task"
	"github.com/xeipuuv/gojsonschema"
)

// taskSchemaJSON describes a record the codec can write and read back
// without loss. Subtasks reuse the root schema.
const taskSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "description", "status", "path"],
  "additionalProperties": false,
  "properties": {
    "id": { "type": "string", "pattern": "^[^\\s\\[\\]]+$" },
    "description": { "type": "string", "minLength": 1, "pattern": "^[^\\r\\n]*$" },
    "status": { "enum": ["todo", "in-progress", "done", "cancelled"] },
    "priority": { "enum": ["", "lowest", "low", "medium", "high", "highest"] },
    "recurs": { "type": "string", "pattern": "^[^\\[\\]\\r\\n]*$" },
    "created": { "type": "string", "format": "date" },
    "start": { "type": "string", "format": "date" },
    "scheduled": { "type": "string", "format": "date" },
    "due": { "type": "string", "format": "date" },
    "completion": { "type": "string", "format": "date" },
    "blocks": {
      "type": "array",
      "items": { "type": "string", "pattern": "^[^\\s,\\[\\]]+$" }
    },
    "path": { "type": "string", "minLength": 1 },
    "symbol": { "type": "string" },
    "source": { "type": "string" },
    "tags": {
      "type": "array",
      "items": { "type": "string", "pattern": "^[\\p{L}\\p{N}_/-]+$" }
    },
    "subtasks": {
      "type": "array",
      "items": { "$ref": "#" }
    }
  }
}`

var taskSchema = mustSchema(taskSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid task schema: %v", err))
	}
	return s
}

// document converts a task to the shape described by taskSchemaJSON.
func document(t task.Task) map[string]interface{} {
	doc := map[string]interface{}{
		"id":          t.ID,
		"description": t.Description,
		"status":      string(t.Status),
		"priority":    string(t.Priority),
		"path":        t.Path,
		"symbol":      t.Symbol,
		"source":      t.Source,
	}
	if t.Recurs != "" {
		doc["recurs"] = t.Recurs
	}
	dates := map[string]string{
		"created":    codec.FormatDate(t.CreatedDate),
		"start":      codec.FormatDate(t.StartDate),
		"scheduled":  codec.FormatDate(t.ScheduledDate),
		"due":        codec.FormatDate(t.DueDate),
		"completion": codec.FormatDate(t.DoneDate),
	}
	for k, v := range dates {
		if v != "" {
			doc[k] = v
		}
	}
	if len(t.Blocks) > 0 {
		doc["blocks"] = t.Blocks
	}
	if len(t.Tags) > 0 {
		doc["tags"] = t.Tags
	}
	if len(t.Subtasks) > 0 {
		subs := make([]interface{}, len(t.Subtasks))
		for i, s := range t.Subtasks {
			subs[i] = document(s)
		}
		doc["subtasks"] = subs
	}
	return doc
}

// validate checks t against the schema and the structural rules a schema
// cannot express. It returns an empty string when t is valid.
func validate(t task.Task) string {
	result, err := taskSchema.Validate(gojsonschema.NewGoLoader(document(t)))
	if err != nil {
		return fmt.Sprintf("schema validation error: %v", err)
	}

	var problems []string
	for _, e := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	problems = append(problems, structuralProblems(t, make(map[string]bool))...)
	return strings.Join(problems, "; ")
}

func structuralProblems(t task.Task, seen map[string]bool) []string {
	var problems []string
	if t.ID != "" {
		if seen[t.ID] {
			problems = append(problems, fmt.Sprintf("id %q is used more than once", t.ID))
		}
		seen[t.ID] = true
	}
	for _, dep := range t.Blocks {
		if dep == t.ID {
			problems = append(problems, fmt.Sprintf("task %q depends on itself", t.ID))
		}
	}
	if len(codec.ParseAttributes(t.Description)) > 0 {
		problems = append(problems, "description must not contain [key:: value] blocks")
	}
	for _, s := range t.Subtasks {
		problems = append(problems, structuralProblems(s, seen)...)
	}
	return problems
}
