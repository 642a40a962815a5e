// Package value defines the tagged scalar that flows through every layer
// of Lix: SQL parameters, result cells, and snapshot content are all
// sequences of Value.
package value

import "fmt"

// Kind tags the variant carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindInteger:
		return "Integer"
	case KindReal:
		return "Real"
	case KindText:
		return "Text"
	case KindBlob:
		return "Blob"
	default:
		return "Unknown"
	}
}

// Value is a tagged scalar with variants Null | Integer(i64) | Real(f64) |
// Text(string) | Blob([]byte). Exactly one field besides Kind is
// meaningful at a time; zero values of the unused fields are ignored.
type Value struct {
	Kind Kind
	I    int64
	R    float64
	T    string
	B    []byte
}

func Null() Value                 { return Value{Kind: KindNull} }
func Integer(i int64) Value       { return Value{Kind: KindInteger, I: i} }
func Real(r float64) Value        { return Value{Kind: KindReal, R: r} }
func Text(s string) Value         { return Value{Kind: KindText, T: s} }
func Blob(b []byte) Value         { return Value{Kind: KindBlob, B: append([]byte(nil), b...)} }

// IsNull reports whether v holds the Null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal compares two Values for exact equality, including byte-for-byte
// Blob comparison and NaN-free Real comparison.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindInteger:
		return v.I == other.I
	case KindReal:
		return v.R == other.R
	case KindText:
		return v.T == other.T
	case KindBlob:
		if len(v.B) != len(other.B) {
			return false
		}
		for i := range v.B {
			if v.B[i] != other.B[i] {
				return false
			}
		}
		return true
	}
	return false
}

// String renders a Value for diagnostics (not for SQL text emission).
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInteger:
		return fmt.Sprintf("%d", v.I)
	case KindReal:
		return fmt.Sprintf("%g", v.R)
	case KindText:
		return v.T
	case KindBlob:
		return fmt.Sprintf("x'%x'", v.B)
	default:
		return "?"
	}
}

// Row is an ordered sequence of Values.
type Row []Value

// QueryResult is an ordered sequence of rows. Column names are not carried;
// callers map positionally.
type QueryResult struct {
	Rows []Row
}
