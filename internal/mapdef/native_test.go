package mapdef

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestNative(t *testing.T) {
	t.Parallel()

	v := cty.ObjectVal(map[string]cty.Value{
		"host":    cty.StringVal("localhost"),
		"port":    cty.NumberIntVal(5432),
		"ratio":   cty.NumberFloatVal(0.5),
		"ssl":     cty.True,
		"schemas": cty.TupleVal([]cty.Value{cty.StringVal("public"), cty.NullVal(cty.String)}),
		"nested":  cty.MapVal(map[string]cty.Value{"a": cty.StringVal("b")}),
	})

	got, err := NativeMap(v)
	require.NoError(t, err)

	want := map[string]any{
		"host":    "localhost",
		"port":    int64(5432),
		"ratio":   0.5,
		"ssl":     true,
		"schemas": []any{"public", nil},
		"nested":  map[string]any{"a": "b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NativeMap() mismatch (-want +got):\n%s", diff)
	}
}

func TestNativeMap_RejectsScalars(t *testing.T) {
	t.Parallel()

	_, err := NativeMap(cty.StringVal("x"))
	require.EqualError(t, err, "expected object, got string")

	m, err := NativeMap(cty.NullVal(cty.DynamicPseudoType))
	require.NoError(t, err)
	require.Nil(t, m)
}
