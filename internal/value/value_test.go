package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	src := `{"a":[1,2.5,null,true],"b":{"c":"x"}}`
	v, err := Parse([]byte(src))
	require.NoError(t, err)

	assert.Equal(t, KindObject, v.Kind())
	a, ok := v.Get("a")
	require.True(t, ok)
	require.Equal(t, 4, a.Len())
	assert.True(t, a.Items()[2].IsNull())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))
}

func TestEqual(t *testing.T) {
	assert.True(t, MustParse(`{"x":[1,{"y":null}]}`).Equal(MustParse(`{"x":[1.0,{"y":null}]}`)))
	assert.False(t, MustParse(`[1,2]`).Equal(MustParse(`[2,1]`)))
	assert.False(t, MustParse(`{"a":1}`).Equal(MustParse(`{"a":1,"b":2}`)))
	assert.False(t, Null().Equal(Array()))
}

func TestTruthy(t *testing.T) {
	for _, v := range []Value{Null(), Bool(false), Int(0), String(""), Array(), Object(nil)} {
		assert.False(t, v.Truthy(), v.String())
	}
	for _, v := range []Value{Bool(true), Int(3), String("x"), Array(Null()), MustParse(`{"k":1}`)} {
		assert.True(t, v.Truthy(), v.String())
	}
}

func TestIsIndex(t *testing.T) {
	n, ok := IsIndex("12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	for _, key := range []string{"", "-1", "1a", " 1", "x"} {
		_, ok := IsIndex(key)
		assert.False(t, ok, key)
	}
}
