//go:build !windows

package toolchain

func programFiles() (pf, pf86 string) {
	return `C:\Program Files`, `C:\Program Files (x86)`
}
