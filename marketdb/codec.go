package marketdb

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/openassets/auctionhouse/auction"
)

// WriteElements writes each element in the elements slice to the passed
// io.Writer using WriteElement.
func WriteElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		err := WriteElement(w, element)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteElement is a one-stop shop to write the big endian representation of
// any element which is to be serialized.
func WriteElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case uint8:
		return binary.Write(w, byteOrder, e)

	case uint32:
		return binary.Write(w, byteOrder, e)

	case uint64:
		return binary.Write(w, byteOrder, e)

	case auction.AssetKind:
		return binary.Write(w, byteOrder, uint8(e))

	case auction.Amount:
		return binary.Write(w, byteOrder, uint64(e))

	case auction.Quantity:
		return binary.Write(w, byteOrder, uint64(e))

	case auction.ID:
		_, err := w.Write(e[:])
		return err

	case auction.Identity:
		return writeString(w, string(e))

	case auction.RegistryID:
		return writeString(w, string(e))

	case auction.UnitID:
		return writeString(w, string(e))

	case auction.Medium:
		return writeString(w, string(e))

	case time.Time:
		return binary.Write(w, byteOrder, uint64(e.UnixNano()))

	case time.Duration:
		return binary.Write(w, byteOrder, uint64(e))

	case []byte:
		if err := writeLen(w, len(e)); err != nil {
			return err
		}
		_, err := w.Write(e)
		return err

	default:
		return fmt.Errorf("unhandled element type: %T", element)
	}
}

// ReadElements deserializes a variable number of elements from the passed
// io.Reader, with each element being deserialized according to the
// ReadElement function.
func ReadElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		err := ReadElement(r, element)
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadElement is a one-stop utility function to deserialize any data
// structure written by WriteElement.
func ReadElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *uint8:
		return binary.Read(r, byteOrder, e)

	case *uint32:
		return binary.Read(r, byteOrder, e)

	case *uint64:
		return binary.Read(r, byteOrder, e)

	case *auction.AssetKind:
		var k uint8
		if err := binary.Read(r, byteOrder, &k); err != nil {
			return err
		}
		*e = auction.AssetKind(k)

	case *auction.Amount:
		var a uint64
		if err := binary.Read(r, byteOrder, &a); err != nil {
			return err
		}
		*e = auction.Amount(a)

	case *auction.Quantity:
		var q uint64
		if err := binary.Read(r, byteOrder, &q); err != nil {
			return err
		}
		*e = auction.Quantity(q)

	case *auction.ID:
		if _, err := io.ReadFull(r, e[:]); err != nil {
			return err
		}

	case *auction.Identity:
		s, err := readString(r)
		if err != nil {
			return err
		}
		*e = auction.Identity(s)

	case *auction.RegistryID:
		s, err := readString(r)
		if err != nil {
			return err
		}
		*e = auction.RegistryID(s)

	case *auction.UnitID:
		s, err := readString(r)
		if err != nil {
			return err
		}
		*e = auction.UnitID(s)

	case *auction.Medium:
		s, err := readString(r)
		if err != nil {
			return err
		}
		*e = auction.Medium(s)

	case *time.Time:
		var ns uint64
		if err := binary.Read(r, byteOrder, &ns); err != nil {
			return err
		}
		*e = time.Unix(0, int64(ns))

	case *time.Duration:
		var d uint64
		if err := binary.Read(r, byteOrder, &d); err != nil {
			return err
		}
		*e = time.Duration(d)

	case *[]byte:
		b, err := readBytes(r)
		if err != nil {
			return err
		}
		*e = b

	default:
		return fmt.Errorf("unhandled element type: %T", element)
	}

	return nil
}

// writeLen writes a length as a big endian uint32.
func writeLen(w io.Writer, l int) error {
	if int64(l) > math.MaxUint32 {
		return fmt.Errorf("length %d out of range", l)
	}
	return binary.Write(w, byteOrder, uint32(l))
}

// writeString writes a length prefixed string.
func writeString(w io.Writer, s string) error {
	if err := writeLen(w, len(s)); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// readBytes reads a length prefixed byte slice.
func readBytes(r io.Reader) ([]byte, error) {
	var l uint32
	if err := binary.Read(r, byteOrder, &l); err != nil {
		return nil, err
	}
	b := make([]byte, l)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// readString reads a length prefixed string.
func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
