package pagination_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redcross-vn/blood_bank_app/internal/utils/pagination"
)

func TestEncodeDecodeCursor(t *testing.T) {
	createdAt := time.Date(2025, 6, 14, 9, 30, 15, 123456789, time.UTC)
	id := "unit-42"

	token := pagination.EncodeCursor(createdAt, id)
	gotTime, gotID, err := pagination.DecodeCursor(token)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(gotTime))
	assert.Equal(t, id, gotID)
}

func TestDecodeCursorIDWithSeparator(t *testing.T) {
	// Only the first separator splits, IDs containing '|' survive.
	createdAt := time.Now().UTC()
	token := pagination.EncodeCursor(createdAt, "a|b")
	_, gotID, err := pagination.DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "a|b", gotID)
}

func TestDecodeCursorInvalid(t *testing.T) {
	_, _, err := pagination.DecodeCursor("not-base64!!!")
	assert.Error(t, err)

	noSeparator := base64.StdEncoding.EncodeToString([]byte("just-one-part"))
	_, _, err = pagination.DecodeCursor(noSeparator)
	assert.Error(t, err)

	badTime := base64.StdEncoding.EncodeToString([]byte("yesterday|some-id"))
	_, _, err = pagination.DecodeCursor(badTime)
	assert.Error(t, err)
}
