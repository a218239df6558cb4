package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	key := []byte("test-key")
	s, err := GenerateToken(key, "abc", time.Hour)
	require.NoError(t, err)

	token, err := jwt.Parse(s, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "abc", claims["sid"])
}

func TestGenerateTokenExpired(t *testing.T) {
	key := []byte("test-key")
	s, err := GenerateToken(key, "abc", -time.Minute)
	require.NoError(t, err)

	_, err = jwt.Parse(s, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	})
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestFormatPostDate(t *testing.T) {
	d := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "Tuesday, March 5, 2024", FormatPostDate(d))
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("42")
	assert.True(t, ok)
	assert.EqualValues(t, 42, id)

	for _, s := range []string{"", "0", "-1", "abc", "1.5"} {
		_, ok := ParseID(s)
		assert.False(t, ok, s)
	}
}
