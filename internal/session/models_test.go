package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSet_PreservesOrder(t *testing.T) {
	var rs ResultSet
	err := json.Unmarshal([]byte(`{"z9":{"a":1},"a1":"raw","m5":{"results":{"b":2}}}`), &rs)
	require.NoError(t, err)

	assert.Equal(t, []string{"z9", "a1", "m5"}, rs.IDs())
	assert.Equal(t, 3, rs.Len())

	v, ok := rs.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "raw", v)

	out, err := json.Marshal(rs)
	require.NoError(t, err)
	assert.Equal(t, `{"z9":{"a":1},"a1":"raw","m5":{"results":{"b":2}}}`, string(out))
}

func TestResultSet_NullAndInvalid(t *testing.T) {
	var rs ResultSet
	require.NoError(t, json.Unmarshal([]byte(`null`), &rs))
	assert.Equal(t, 0, rs.Len())

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &rs))
}

func TestResultSet_SetKeepsPosition(t *testing.T) {
	rs := NewResultSet()
	rs.Set("a", 1)
	rs.Set("b", 2)
	rs.Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, rs.IDs())
	v, _ := rs.Get("a")
	assert.Equal(t, 3, v)
}

func TestSession_UnmarshalJobShape(t *testing.T) {
	raw := `{
		"sessionId": "s-1",
		"results": {"111": {"answer": {"vendor": "Acme"}}},
		"selectedFiles": [{"id": 111, "name": "a.pdf"}, {"id": "222"}],
		"fileConfigs": {"111": {"extraction_method": "freeform"}},
		"metadataConfig": {"use_template": true, "template_id": "enterprise_1_invoice"}
	}`

	var sess Session
	require.NoError(t, json.Unmarshal([]byte(raw), &sess))

	assert.Equal(t, "s-1", sess.ID)
	assert.Equal(t, []string{"111"}, sess.Results.IDs())
	assert.Equal(t, []SelectedFile{{ID: "111", Name: "a.pdf"}, {ID: "222"}}, sess.SelectedFiles)
	assert.Equal(t, ExtractionFreeform, sess.FileConfig("111").ExtractionMethod)
	assert.Equal(t, DefaultFileConfig(), sess.FileConfig("222"))
	require.NotNil(t, sess.MetadataConfig)
	assert.True(t, sess.MetadataConfig.UseTemplate)
}
