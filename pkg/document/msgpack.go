package document

import (
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder. Objects are written as maps in
// key order. Integer literals are written as integers; every other number
// literal is written as a float64. Canonical text (see Value.Text) is unchanged
// by the round trip.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindNumber:
		if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
			return enc.EncodeInt(i)
		}
		if u, err := strconv.ParseUint(v.s, 10, 64); err == nil {
			return enc.EncodeUint(u)
		}
		f, ok := v.AsFloat()
		if !ok {
			return fmt.Errorf("%w: %q", errInvalidNumber, v.s)
		}
		return enc.EncodeFloat64(f)
	case KindString:
		return enc.EncodeString(v.s)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, item := range v.arr {
			if err := item.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case KindObject:
		if err := enc.EncodeMapLen(v.obj.Len()); err != nil {
			return err
		}
		var err error
		v.obj.Range(func(k string, field Value) bool {
			if err = enc.EncodeString(k); err != nil {
				return false
			}
			err = field.EncodeMsgpack(enc)
			return err == nil
		})
		return err
	}
	return fmt.Errorf("cannot encode kind %s", v.kind)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	decoded, err := decodeMsgpackValue(dec)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func decodeMsgpackValue(dec *msgpack.Decoder) (Value, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return Value{}, err
	}

	switch {
	case c == msgpcode.Nil:
		if err := dec.DecodeNil(); err != nil {
			return Value{}, err
		}
		return Null(), nil
	case c == msgpcode.True || c == msgpcode.False:
		b, err := dec.DecodeBool()
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case c == msgpcode.Uint64:
		u, err := dec.DecodeUint64()
		if err != nil {
			return Value{}, err
		}
		return Number(strconv.FormatUint(u, 10)), nil
	case msgpcode.IsFixedNum(c),
		c == msgpcode.Uint8, c == msgpcode.Uint16, c == msgpcode.Uint32,
		c == msgpcode.Int8, c == msgpcode.Int16, c == msgpcode.Int32, c == msgpcode.Int64:
		i, err := dec.DecodeInt64()
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case msgpcode.IsString(c):
		s, err := dec.DecodeString()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, max(n, 0))
		for i := 0; i < n; i++ {
			item, err := decodeMsgpackValue(dec)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Array(items...), nil
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return Value{}, err
		}
		obj := NewObject()
		for i := 0; i < n; i++ {
			key, err := dec.DecodeString()
			if err != nil {
				return Value{}, err
			}
			field, err := decodeMsgpackValue(dec)
			if err != nil {
				return Value{}, err
			}
			obj.Set(key, field)
		}
		return ObjectValue(obj), nil
	}
	return Value{}, fmt.Errorf("unsupported msgpack code 0x%x", c)
}
