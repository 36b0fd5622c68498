package byteutil

import (
	"encoding/binary"
	"unsafe"
)

func EncodeUint64ToBytes(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func EncodeInt64ToBytes(n int64) []byte {
	return EncodeUint64ToBytes(uint64(n))
}

func BytesToString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}
