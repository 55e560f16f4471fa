package tap

import (
	"os"

	"golang.org/x/sys/unix"
)

// req is struct ifreq with the flags member of the union.
type req struct {
	Name  [unix.IFNAMSIZ]byte
	Flags uint16
	pad   [0x28 - unix.IFNAMSIZ - 2]byte
}

func ioctl(fd uintptr, request uintptr, argp uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, argp)
	if errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}
