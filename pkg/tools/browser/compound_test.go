package browser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormFieldsKeepDocumentOrder(t *testing.T) {
	var f FormFields
	require.NoError(t, json.Unmarshal([]byte(`{"#b":"2","#a":1.50,"#c":true,"#d":null}`), &f))
	assert.Equal(t, FormFields{
		{Selector: "#b", Value: "2"},
		{Selector: "#a", Value: "1.50"},
		{Selector: "#c", Value: "true"},
		{Selector: "#d", Value: ""},
	}, f)
}

func TestFormFieldsRejectsNonObject(t *testing.T) {
	var f FormFields
	assert.Error(t, json.Unmarshal([]byte(`["#a","x"]`), &f))
	assert.Error(t, json.Unmarshal([]byte(`{"#a":`), &f))
}

func TestStepValue(t *testing.T) {
	assert.Equal(t, "", stepValue(nil))
	assert.Equal(t, "abc", stepValue("abc"))
	assert.Equal(t, "42", stepValue(json.Number("42")))
	assert.Equal(t, "0.25", stepValue(0.25))
	assert.Equal(t, "false", stepValue(false))
}
