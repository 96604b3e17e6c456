package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlld-lang/mlld-go/internal/value"
)

func TestValidateToolSpecAcceptsWellFormedSchema(t *testing.T) {
	spec := value.ToolSpec{
		Name: "search",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"query"},
		},
	}
	assert.NoError(t, value.ValidateToolSpec(spec))
}

func TestValidateToolSpecRejectsMissingName(t *testing.T) {
	err := value.ValidateToolSpec(value.ToolSpec{})
	assert.Error(t, err)
}

func TestValidateToolSpecRejectsInvalidSchema(t *testing.T) {
	spec := value.ToolSpec{
		Name: "broken",
		Schema: map[string]interface{}{
			"type": 12345, // type must be a string or array of strings
		},
	}
	assert.Error(t, value.ValidateToolSpec(spec))
}

func TestValidateToolsCollectionRejectsDuplicateNames(t *testing.T) {
	specs := []value.ToolSpec{{Name: "a"}, {Name: "a"}}
	err := value.ValidateToolsCollection(specs)
	assert.Error(t, err)
}
