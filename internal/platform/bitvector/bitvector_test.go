package bitvector

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_RejectsZeroLength(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestSetAndTest(t *testing.T) {
	v, err := New(10)
	require.NoError(t, err)

	require.NoError(t, v.Set(0))
	require.NoError(t, v.Set(9))
	require.ErrorIs(t, v.Set(10), ErrOutOfRange)

	require.True(t, v.Test(0))
	require.True(t, v.Test(9))
	require.False(t, v.Test(5))
	require.False(t, v.Test(100))
	require.Equal(t, uint(2), v.Cardinality())
	require.Equal(t, uint(10), v.Len())
}

func TestBytes_LayoutAndRoundTrip(t *testing.T) {
	v, err := New(13)
	require.NoError(t, err)
	require.NoError(t, v.Set(0))
	require.NoError(t, v.Set(3))
	require.NoError(t, v.Set(12))

	b := v.Bytes()
	require.Equal(t, []byte{0x09, 0x10}, b)

	back, err := FromBytes(b, 13)
	require.NoError(t, err)
	require.True(t, v.Equal(back))
}

func TestBytes_TrailingZerosKeepLength(t *testing.T) {
	v, err := New(64)
	require.NoError(t, err)
	require.NoError(t, v.Set(1))

	data, err := v.MarshalBinary()
	require.NoError(t, err)

	var back BitVector
	require.NoError(t, back.UnmarshalBinary(data))
	require.Equal(t, uint(64), back.Len())
	require.True(t, v.Equal(&back))
}

func TestFromBytes_Malformed(t *testing.T) {
	t.Run("wrong size", func(t *testing.T) {
		_, err := FromBytes([]byte{0x01}, 16)
		require.ErrorIs(t, err, ErrMalformed)
	})
	t.Run("bit beyond length", func(t *testing.T) {
		_, err := FromBytes([]byte{0x80}, 7)
		require.ErrorIs(t, err, ErrMalformed)
	})
	t.Run("short header", func(t *testing.T) {
		var v BitVector
		require.ErrorIs(t, v.UnmarshalBinary([]byte{0, 0}), ErrMalformed)
	})
	t.Run("zero length", func(t *testing.T) {
		_, err := FromBytes(nil, 0)
		require.ErrorIs(t, err, ErrInvalidLength)
	})
	t.Run("length above max", func(t *testing.T) {
		_, err := FromBytes(nil, MaxLength+1)
		require.ErrorIs(t, err, ErrInvalidLength)
	})
}

func TestDecode_HugeDeclaredLengthDoesNotAllocate(t *testing.T) {
	decoders := map[string]func() error{
		"binary": func() error {
			var v BitVector
			return v.UnmarshalBinary([]byte{0xff, 0xff, 0xff, 0xff})
		},
		"json": func() error {
			var v BitVector
			return json.Unmarshal([]byte(`{"length":4294967295,"bits":""}`), &v)
		},
	}
	for name, decode := range decoders {
		t.Run(name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.GC()
			runtime.ReadMemStats(&before)
			err := decode()
			runtime.ReadMemStats(&after)

			require.ErrorIs(t, err, ErrMalformed)
			require.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	v, err := New(21)
	require.NoError(t, err)
	require.NoError(t, v.SetRange(4, 11))

	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.JSONEq(t, `{"length":21,"bits":"8AcA"}`, string(data))

	var back BitVector
	require.NoError(t, json.Unmarshal(data, &back))
	require.True(t, v.Equal(&back))
}

func TestConcat(t *testing.T) {
	a, _ := New(3)
	b, _ := New(5)
	require.NoError(t, a.Set(2))
	require.NoError(t, b.Set(0))
	require.NoError(t, b.Set(4))

	c, err := Concat(a, b)
	require.NoError(t, err)
	require.Equal(t, uint(8), c.Len())
	require.Equal(t, uint(3), c.Cardinality())
	for _, i := range []uint{2, 3, 7} {
		require.True(t, c.Test(i), "bit %d", i)
	}
}

func TestPermute(t *testing.T) {
	v, _ := New(4)
	require.NoError(t, v.Set(0))
	require.NoError(t, v.Set(1))

	p, err := v.Permute([]uint32{3, 2, 1, 0})
	require.NoError(t, err)
	require.True(t, p.Test(3))
	require.True(t, p.Test(2))
	require.False(t, p.Test(0))
	require.Equal(t, v.Cardinality(), p.Cardinality())

	_, err = v.Permute([]uint32{0, 1})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestClone_IsIndependent(t *testing.T) {
	v, _ := New(8)
	c := v.Clone()
	require.NoError(t, c.Set(1))
	require.False(t, v.Test(1))
}
