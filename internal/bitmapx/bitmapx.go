package bitmapx

import (
	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/exp/constraints"
)

// Bools convert to an array of bools
func Bools(n int, m *roaring.Bitmap) (bf []bool) {
	bf = make([]bool, n)

	for i := m.Iterator(); i.HasNext() && int(i.PeekNext()) < len(bf); {
		bf[i.Next()] = true
	}

	return bf
}

// Lazy ...
func Lazy(m *roaring.Bitmap) *roaring.Bitmap {
	if m != nil {
		return m
	}

	return roaring.New()
}

// Contains returns iff all the bits are set within the bitmap
func Contains(m *roaring.Bitmap, bits ...int) (b bool) {
	m = Lazy(m)
	b = true
	for _, i := range bits {
		b = b && m.ContainsInt(i)
	}
	return b
}

func Range[T constraints.Integer](min, max T) *roaring.Bitmap {
	m := roaring.New()
	m.AddRange(uint64(min), uint64(max)+1)
	return m
}

func Zero[T constraints.Integer](max T) *roaring.Bitmap {
	m := Range(0, max)
	m.Clear()
	return m
}

func Fill[T constraints.Integer](max T) *roaring.Bitmap {
	return Range(0, max)
}
