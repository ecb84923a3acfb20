//go:build windows

package toolchain

import (
	"os"

	"golang.org/x/sys/windows"
)

func programFiles() (pf, pf86 string) {
	pf = knownFolder(windows.FOLDERID_ProgramFiles, "ProgramFiles", `C:\Program Files`)
	pf86 = knownFolder(windows.FOLDERID_ProgramFilesX86, "ProgramFiles(x86)", `C:\Program Files (x86)`)
	return pf, pf86
}

func knownFolder(id *windows.KNOWNFOLDERID, envKey, fallback string) string {
	if p, err := windows.KnownFolderPath(id, windows.KF_FLAG_DEFAULT); err == nil && p != "" {
		return p
	}
	if p := os.Getenv(envKey); p != "" {
		return p
	}
	return fallback
}
