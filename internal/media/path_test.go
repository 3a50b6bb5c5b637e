package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gathr/service/internal/entity"
)

func TestProfileKey(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"GRP#becky_b1998", "groups/pictures/GRP#becky_b1998/profile"},
		{"USR#alice123", "users/pictures/USR#alice123/profile"},
		{"EVT#123xyz", "events/pictures/EVT#123xyz/profile"},
		{"EVT#party#2026", "events/pictures/EVT#party#2026/profile"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ProfileKey(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := ProfileKey(tt.id)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestEveryEntityTypeHasFolder(t *testing.T) {
	for _, typ := range entity.Types() {
		folder, ok := Folder(typ)
		assert.True(t, ok, string(typ))
		assert.NotEmpty(t, folder)
	}
	_, ok := Folder("ABC")
	assert.False(t, ok)
}

func TestProfileKeyUnsupportedType(t *testing.T) {
	for _, id := range []string{"ABC#x", "GROUP#x", "usr#x", "#x", "USRx"} {
		t.Run(id, func(t *testing.T) {
			_, err := ProfileKey(id)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestParseProfileKey(t *testing.T) {
	id, err := ParseProfileKey("users/pictures/USR#alice123/profile")
	require.NoError(t, err)
	assert.Equal(t, "USR#alice123", id)

	bad := []string{
		"",
		"users/pictures/USR#alice123",
		"users/pictures/USR#alice123/profile/extra",
		"users/photos/USR#alice123/profile",
		"users/pictures/USR#alice123/avatar",
		"groups/pictures/USR#alice123/profile",
		"users/pictures/ABC#x/profile",
		"users/pictures/not-an-id/profile",
		"other/unrelated.txt",
	}
	for _, key := range bad {
		t.Run(key, func(t *testing.T) {
			_, err := ParseProfileKey(key)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}
