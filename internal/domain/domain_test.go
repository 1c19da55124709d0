package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(CourseCursor{ID: "MATH-221-B"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, "MATH-221-B", cursor.ID)
}

func TestDecodeCursor(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)

	_, err = DecodeCursor("%%%")
	assert.Error(t, err)

	_, err = DecodeCursor("bm90IGpzb24=")
	assert.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	tests := map[int]int{
		-1:  DefaultListLimit,
		0:   DefaultListLimit,
		7:   7,
		100: 100,
		500: MaxListLimit,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLimit(in), "limit %d", in)
	}
}

func TestDepartmentOf(t *testing.T) {
	assert.Equal(t, "CS", DepartmentOf("CS-101"))
	assert.Equal(t, "MATH", DepartmentOf("MATH-221-B"))
	assert.Equal(t, "PHYS", DepartmentOf("PHYS"))
}

func TestReviewOpString(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "update", OpUpdate.String())
	assert.Equal(t, "delete", OpDelete.String())
}
