package buyer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	uid := uint(3)

	assert.NoError(t, ForUser(3).Validate())
	assert.NoError(t, ForSession("abc").Validate())
	assert.ErrorIs(t, Identity{}.Validate(), ErrInvalidIdentity)
	assert.ErrorIs(t, Identity{UserID: &uid, SessionToken: "abc"}.Validate(), ErrInvalidIdentity)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "user:7", ForUser(7).Key())
	assert.Equal(t, "session:tok", ForSession("tok").Key())
}

func TestColumns(t *testing.T) {
	userID, token := ForUser(9).Columns()
	require.NotNil(t, userID)
	assert.Equal(t, uint(9), *userID)
	assert.Nil(t, token)

	userID, token = ForSession("tok").Columns()
	assert.Nil(t, userID)
	require.NotNil(t, token)
	assert.Equal(t, "tok", *token)
}
