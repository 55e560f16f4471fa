package binary

import "unsafe"

// IsBigEndian reports the byte order of the running host.
func IsBigEndian() bool {
	var i uint16 = 0x0001
	return (*[2]byte)(unsafe.Pointer(&i))[0] == 0x00
}

func Swap16(i uint16) uint16 {
	return (i<<8)&0xff00 | i>>8
}

func Swap32(i uint32) uint32 {
	b0 := (i & 0x000000ff) << 24
	b1 := (i & 0x0000ff00) << 8
	b2 := (i & 0x00ff0000) >> 8
	b3 := (i & 0xff000000) >> 24

	return b0 | b1 | b2 | b3
}

// Htons16 converts a host order value to network order, as the kernel expects
// for sll_protocol and the socket(2) protocol argument.
func Htons16(i uint16) uint16 {
	if IsBigEndian() {
		return i
	}
	return Swap16(i)
}

// Ntohs16 is the inverse of Htons16.
func Ntohs16(i uint16) uint16 {
	return Htons16(i)
}
