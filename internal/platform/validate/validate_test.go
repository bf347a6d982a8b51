package validate

import (
	"testing"

	perr "sejmcollect/internal/platform/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Num  int    `json:"num" validate:"min=1"`
	Name string `json:"speaker" validate:"required"`
	Day  string `json:"date" validate:"omitempty,ymd"`
}

func TestStruct_OK(t *testing.T) {
	require.NoError(t, Struct(sample{Num: 1, Name: "Marszałek", Day: "2024-01-02"}))
	require.NoError(t, Struct(sample{Num: 3, Name: "x"}))
}

func TestStruct_FirstFailureWithJSONField(t *testing.T) {
	err := Struct(sample{Num: 0, Name: "x"})
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
	e, ok := perr.As(err)
	require.True(t, ok)
	assert.Equal(t, "num", e.Field())
	assert.Equal(t, "num must be at least 1", err.Error())
}

func TestStruct_Required(t *testing.T) {
	err := Struct(sample{Num: 1})
	e, ok := perr.As(err)
	require.True(t, ok)
	assert.Equal(t, "speaker", e.Field())
	assert.True(t, perr.IsPermanent(err))
}

func TestStruct_YMD(t *testing.T) {
	err := Struct(sample{Num: 1, Name: "x", Day: "2024/01/02"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestStruct_Misuse(t *testing.T) {
	err := Struct(nil)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))
}

func TestFieldAndMessage_Nil(t *testing.T) {
	f, m := FieldAndMessage(nil)
	assert.Empty(t, f)
	assert.Empty(t, m)
}
