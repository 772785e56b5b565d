package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestObjectID_Deterministic(t *testing.T) {
	assert.Equal(t, objectID(42), objectID(42))
	assert.NotEqual(t, objectID(42), objectID(43))
}

func TestParseHits(t *testing.T) {
	result := &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]interface{}{
				"UserIndex": []interface{}{
					map[string]interface{}{"user_id": float64(7)},
					map[string]interface{}{"user_id": float64(3)},
					map[string]interface{}{"user_id": float64(11)},
				},
			},
		},
	}

	ids, err := parseHits(result, "UserIndex")
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 3, 11}, ids)
}

func TestParseHits_Empty(t *testing.T) {
	result := &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]interface{}{"UserIndex": []interface{}{}},
		},
	}

	ids, err := parseHits(result, "UserIndex")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestParseHits_GraphQLError(t *testing.T) {
	result := &models.GraphQLResponse{
		Errors: []*models.GraphQLError{{Message: "Cannot query field \"user_id\""}},
	}

	_, err := parseHits(result, "UserIndex")
	assert.Error(t, err)
}

func TestParseHits_Malformed(t *testing.T) {
	result := &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]interface{}{
				"UserIndex": []interface{}{map[string]interface{}{"user_id": "abc"}},
			},
		},
	}

	_, err := parseHits(result, "UserIndex")
	assert.Error(t, err)
}
