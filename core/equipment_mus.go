package core

import (
	"errors"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// ErrCorruptRecord indicates a serialized record could not be decoded.
var ErrCorruptRecord = errors.New("corrupt record")

// EquipmentMUS serializes Equipment in the MUS binary format.
var EquipmentMUS = equipmentMUS{}

type equipmentMUS struct{}

func (equipmentMUS) Marshal(v Equipment, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.NameEN, bs[n:])
	n += ord.String.Marshal(v.Category, bs[n:])
	n += ord.String.Marshal(v.Part, bs[n:])
	n += stringsMUS.Marshal(v.WaferSizes, bs[n:])
	n += stringsMUS.Marshal(v.Materials, bs[n:])
	n += optionalFloatMUS.Marshal(v.TempMin, bs[n:])
	n += optionalFloatMUS.Marshal(v.TempMax, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += stringsMUS.Marshal(v.Tags, bs[n:])
	n += ord.String.Marshal(v.Institution, bs[n:])
	n += ord.String.Marshal(v.Location, bs[n:])
	n += ord.String.Marshal(v.ReservationURL, bs[n:])
	n += ord.Bool.Marshal(v.Maintenance, bs[n:])
	n += ord.Bool.Marshal(v.External, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += timeMUS.Marshal(v.InsertedAt, bs[n:])
	n += timeMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (equipmentMUS) Unmarshal(bs []byte) (v Equipment, n int, err error) {
	var n1 int
	read := func(fn func([]byte) (int, error)) {
		if err != nil {
			return
		}
		n1, err = fn(bs[n:])
		n += n1
	}
	str := func(dst *string) func([]byte) (int, error) {
		return func(b []byte) (k int, e error) {
			*dst, k, e = ord.String.Unmarshal(b)
			return
		}
	}
	strs := func(dst *[]string) func([]byte) (int, error) {
		return func(b []byte) (k int, e error) {
			*dst, k, e = stringsMUS.Unmarshal(b)
			return
		}
	}
	optFloat := func(dst **float64) func([]byte) (int, error) {
		return func(b []byte) (k int, e error) {
			*dst, k, e = optionalFloatMUS.Unmarshal(b)
			return
		}
	}
	boolean := func(dst *bool) func([]byte) (int, error) {
		return func(b []byte) (k int, e error) {
			*dst, k, e = ord.Bool.Unmarshal(b)
			return
		}
	}
	timestamp := func(dst *time.Time) func([]byte) (int, error) {
		return func(b []byte) (k int, e error) {
			*dst, k, e = timeMUS.Unmarshal(b)
			return
		}
	}

	read(str(&v.ID))
	read(str(&v.Name))
	read(str(&v.NameEN))
	read(str(&v.Category))
	read(str(&v.Part))
	read(strs(&v.WaferSizes))
	read(strs(&v.Materials))
	read(optFloat(&v.TempMin))
	read(optFloat(&v.TempMax))
	read(str(&v.Description))
	read(strs(&v.Tags))
	read(str(&v.Institution))
	read(str(&v.Location))
	read(str(&v.ReservationURL))
	read(boolean(&v.Maintenance))
	read(boolean(&v.External))
	read(func(b []byte) (k int, e error) {
		v.Vector, k, e = vectorMUS.Unmarshal(b)
		return
	})
	read(timestamp(&v.InsertedAt))
	read(timestamp(&v.UpdatedAt))
	return
}

func (equipmentMUS) Size(v Equipment) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.NameEN)
	size += ord.String.Size(v.Category)
	size += ord.String.Size(v.Part)
	size += stringsMUS.Size(v.WaferSizes)
	size += stringsMUS.Size(v.Materials)
	size += optionalFloatMUS.Size(v.TempMin)
	size += optionalFloatMUS.Size(v.TempMax)
	size += ord.String.Size(v.Description)
	size += stringsMUS.Size(v.Tags)
	size += ord.String.Size(v.Institution)
	size += ord.String.Size(v.Location)
	size += ord.String.Size(v.ReservationURL)
	size += ord.Bool.Size(v.Maintenance)
	size += ord.Bool.Size(v.External)
	size += vectorMUS.Size(v.Vector)
	size += timeMUS.Size(v.InsertedAt)
	size += timeMUS.Size(v.UpdatedAt)
	return
}

func (s equipmentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

var stringsMUS = stringSliceMUS{}

// stringSliceMUS encodes a length-prefixed list of strings.
type stringSliceMUS struct{}

func (stringSliceMUS) Marshal(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func (stringSliceMUS) Unmarshal(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs) {
		err = ErrCorruptRecord
		return
	}
	if length == 0 {
		return
	}
	v = make([]string, length)
	var n1 int
	for i := range v {
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (stringSliceMUS) Size(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return
}

var optionalFloatMUS = nullableFloatMUS{}

// nullableFloatMUS encodes a presence flag followed by the IEEE 754 bits.
type nullableFloatMUS struct{}

func (nullableFloatMUS) Marshal(v *float64, bs []byte) (n int) {
	n = ord.Bool.Marshal(v != nil, bs)
	if v != nil {
		n += varint.Uint64.Marshal(math.Float64bits(*v), bs[n:])
	}
	return
}

func (nullableFloatMUS) Unmarshal(bs []byte) (v *float64, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return
	}
	bits, n1, err := varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	f := math.Float64frombits(bits)
	v = &f
	return
}

func (nullableFloatMUS) Size(v *float64) (size int) {
	size = ord.Bool.Size(v != nil)
	if v != nil {
		size += varint.Uint64.Size(math.Float64bits(*v))
	}
	return
}

var vectorMUS = float32SliceMUS{}

type float32SliceMUS struct{}

func (float32SliceMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return
}

func (float32SliceMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs) {
		err = ErrCorruptRecord
		return
	}
	if length == 0 {
		return
	}
	v = make([]float32, length)
	var (
		bits uint32
		n1   int
	)
	for i := range v {
		bits, n1, err = varint.Uint32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v[i] = math.Float32frombits(bits)
	}
	return
}

func (float32SliceMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return
}

var timeMUS = unixNanoMUS{}

// unixNanoMUS encodes a UTC timestamp as nanoseconds since the epoch.
// The zero time is stored as 0.
type unixNanoMUS struct{}

func (unixNanoMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(unixNano(v), bs)
}

func (unixNanoMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	nanos, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || nanos == 0 {
		return
	}
	v = time.Unix(0, nanos).UTC()
	return
}

func (unixNanoMUS) Size(v time.Time) (size int) {
	return varint.Int64.Size(unixNano(v))
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
