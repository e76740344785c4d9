package retro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"card-create","columnId":"c1","content":"X"}`))
	require.NoError(t, err)
	assert.Equal(t, CardCreate{ColumnID: "c1", Content: "X"}, msg)
	assert.Equal(t, KindCardCreate, msg.Kind())

	msg, err = Decode([]byte(`{"type":"stage-change","stageIndex":0}`))
	require.NoError(t, err)
	sc := msg.(StageChange)
	require.NotNil(t, sc.StageIndex)
	assert.Equal(t, 0, *sc.StageIndex)

	msg, err = Decode([]byte(`{"type":"cards-grouped","groupId":"g","cardIds":["a","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, CardsGrouped{GroupID: "g", CardIDs: []string{"a", "b"}}, msg)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not json", `hello`, ErrMalformed},
		{"array", `[1,2]`, ErrMalformed},
		{"null", `null`, ErrMalformed},
		{"missing type", `{"cardId":"a"}`, ErrMalformed},
		{"type not a string", `{"type":7}`, ErrMalformed},
		{"wrong field type", `{"type":"vote-add","itemId":42}`, ErrMalformed},
		{"unknown type", `{"type":"card-explode"}`, ErrUnknownType},
		{"server only type", `{"type":"participants-update"}`, ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
