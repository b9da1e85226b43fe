package mailer

import "strings"

// BuildContext projects a document into the render context for a template,
// following a trigger's data mapping. A source expression containing "{{" is
// rendered against the document first, producing a pre-baked string; anything
// else is taken as a field name and copied verbatim, defaulting to the empty
// string when the field is absent.
//
// The result has exactly the keys present in mapping.
func BuildContext(document map[string]interface{}, mapping map[string]string) map[string]interface{} {
	context := make(map[string]interface{}, len(mapping))

	for variable, source := range mapping {
		if strings.Contains(source, "{{") {
			context[variable] = Render(source, document)
			continue
		}

		if value, ok := document[source]; ok && value != nil {
			context[variable] = value
		} else {
			context[variable] = ""
		}
	}

	return context
}
