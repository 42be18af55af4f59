package bmp

import "fmt"

// ErrorKind classifies why a decode failed.
type ErrorKind int

const (
	KindNotABitmap ErrorKind = iota + 1
	KindInvalidInfoHeaderSize
	KindUnsupportedGeometry
	KindInvalidBitCount
	KindInvalidCompression
	KindUnsupportedPaletteSize
	KindUnexpectedEndOfData
	KindMalformedRunLength
)

var kindNames = map[ErrorKind]string{
	KindNotABitmap:             "NotABitmap",
	KindInvalidInfoHeaderSize:  "InvalidInfoHeaderSize",
	KindUnsupportedGeometry:    "UnsupportedGeometry",
	KindInvalidBitCount:        "InvalidBitCount",
	KindInvalidCompression:     "InvalidCompression",
	KindUnsupportedPaletteSize: "UnsupportedPaletteSize",
	KindUnexpectedEndOfData:    "UnexpectedEndOfData",
	KindMalformedRunLength:     "MalformedRunLength",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// DecodeError is returned for every malformed or unsupported input.
type DecodeError struct {
	Kind   ErrorKind
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return "bmp: " + e.Kind.String()
	}
	return "bmp: " + e.Kind.String() + ": " + e.Detail
}

// Is reports whether target is a DecodeError of the same kind, so the
// sentinels below match any detail message.
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

var (
	ErrNotABitmap             = &DecodeError{Kind: KindNotABitmap}
	ErrInvalidInfoHeaderSize  = &DecodeError{Kind: KindInvalidInfoHeaderSize}
	ErrUnsupportedGeometry    = &DecodeError{Kind: KindUnsupportedGeometry}
	ErrInvalidBitCount        = &DecodeError{Kind: KindInvalidBitCount}
	ErrInvalidCompression     = &DecodeError{Kind: KindInvalidCompression}
	ErrUnsupportedPaletteSize = &DecodeError{Kind: KindUnsupportedPaletteSize}
	ErrUnexpectedEndOfData    = &DecodeError{Kind: KindUnexpectedEndOfData}
	ErrMalformedRunLength     = &DecodeError{Kind: KindMalformedRunLength}
)

func newError(kind ErrorKind, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
