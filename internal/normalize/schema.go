package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const scheduleSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["storyBlocks"],
  "properties": {
    "summary": {"type": "object"},
    "storyBlocks": {
      "type": "array",
      "items": {
        "type": ["object", "null"],
        "properties": {
          "title": {"type": "string"},
          "timeBoxes": {"type": "array"},
          "totalDuration": {"type": ["number", "string"]}
        }
      }
    }
  }
}`

var (
	schedulePrinter = message.NewPrinter(language.English)
	scheduleSchema  = mustCompileSchema(scheduleSchemaJSON, "schedule.schema.json")
)

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// structureViolations validates the top-level generator object and returns
// one message per failing leaf, or nil when the shape is canonical.
func structureViolations(instance any) []string {
	err := scheduleSchema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var out []string
	collectViolations(ve, &out)
	return out
}

func collectViolations(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*out = append(*out, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(schedulePrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectViolations(c, out)
	}
}
