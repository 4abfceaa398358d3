package templateclient

import (
	"testing"

	"github.com/iamprecieee/distributed-notification-system/internal/domain/procerr"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesVariables(t *testing.T) {
	tmpl := template.Template{
		Code: "WELCOME",
		Content: template.Content{
			Title: "Hi {{user_name}}",
			Body:  "Welcome, {{user_name}}! You are {{age}} years old.",
		},
	}

	content, err := Render(tmpl, map[string]interface{}{"user_name": "Alice", "age": float64(30)})
	require.NoError(t, err)
	assert.Equal(t, "Hi Alice", content.Title)
	assert.Equal(t, "Welcome, Alice! You are 30 years old.", content.Body)
}

func TestRender_MissingVariableNamesPlaceholder(t *testing.T) {
	tmpl := template.Template{
		Content: template.Content{Title: "Hi {{user_name}}", Body: "static"},
	}

	_, err := Render(tmpl, map[string]interface{}{})

	var procErr *procerr.Error
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, procerr.KindTemplateRender, procErr.Kind)
	assert.Contains(t, procErr.Error(), "user_name")
}

func TestRender_UnsupportedVariableType(t *testing.T) {
	tmpl := template.Template{
		Content: template.Content{Title: "Hi {{payload}}", Body: "static"},
	}

	_, err := Render(tmpl, map[string]interface{}{"payload": []string{"nope"}})

	var procErr *procerr.Error
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, procerr.KindTemplateRender, procErr.Kind)
}

func TestRender_BoolAndNilVariables(t *testing.T) {
	tmpl := template.Template{
		Content: template.Content{Title: "flag={{flag}} note={{note}}", Body: "x"},
	}

	content, err := Render(tmpl, map[string]interface{}{"flag": true, "note": nil})
	require.NoError(t, err)
	assert.Equal(t, "flag=true note=", content.Title)
}
