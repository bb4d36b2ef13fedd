package utils

import "whatrack/models"

// BuildComponents merges a template's static component structure with a
// per-recipient variable list into the outbound message payload.
//
// Without variables the template's approved structure is sent as-is. With
// variables the static structure is ignored and a single body component is
// built whose parameters are the variable values, positionally, in the
// order the caller supplied them. Substitution is positional, not keyed by
// placeholder name.
func BuildComponents(templateComponents []models.TemplateComponent, variables models.OrderedVariables) []models.TemplateComponent {
	if len(variables) == 0 {
		return templateComponents
	}

	parameters := make([]models.TemplateParameter, 0, len(variables))
	for _, variable := range variables {
		parameters = append(parameters, models.TemplateParameter{
			Type: "text",
			Text: variable.Value,
		})
	}

	return []models.TemplateComponent{
		{
			Type:       "body",
			Parameters: parameters,
		},
	}
}
