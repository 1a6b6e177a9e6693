package checksum

import "golang.org/x/sys/cpu"

func init() {
	if cpu.ARM64.HasASIMD {
		copyBlocksFnc = copyBlocksUnsafe
	}
}
