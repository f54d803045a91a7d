package banner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_JSON(t *testing.T) {
	data, err := json.Marshal([]Value{Null(), Number(12.5), Number(100), String("45%")})
	require.NoError(t, err)
	assert.JSONEq(t, `[null, 12.5, 100, "45%"]`, string(data))

	var back []Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Value{Null(), Number(12.5), Number(100), String("45%")}, back)
}

func TestValue_UnmarshalRejectsOtherTypes(t *testing.T) {
	var v Value
	assert.Error(t, json.Unmarshal([]byte(`true`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{}`), &v))
}

func TestValue_accessors(t *testing.T) {
	f, ok := Number(3).Float()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = String("x").Float()
	assert.False(t, ok)

	s, ok := String("x").Str()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	assert.True(t, Null().IsNull())
	assert.Nil(t, Null().Interface())
	assert.Equal(t, 0.25, Number(0.25).Interface())
	assert.Equal(t, "0.25", Number(0.25).Text())
	assert.Equal(t, "", Null().Text())
	assert.Equal(t, KindString, String("").Kind())
}

func TestBanners_JSONKeepsOrder(t *testing.T) {
	var b Banners
	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		b.add(&BannerRecord{SheetName: name, Demographics: []DemographicColumn{}, ColumnLabels: []string{}, Questions: []QuestionRecord{}})
	}
	data, err := json.Marshal(b)
	require.NoError(t, err)

	var back Banners
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, back.Names())
	assert.Equal(t, b, back)

	data2, err := json.Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(data2))
}

func TestBanners_empty(t *testing.T) {
	var b Banners
	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
	assert.Nil(t, b.First())
	assert.Equal(t, 0, b.Len())

	require.NoError(t, json.Unmarshal([]byte(`{}`), &b))
	assert.Equal(t, Banners{}, b)
}

func TestBanners_UnmarshalRejectsArray(t *testing.T) {
	var b Banners
	assert.Error(t, json.Unmarshal([]byte(`[]`), &b))
}
