//go:build darwin

package watcher

import "golang.org/x/sys/unix"

func statfsType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	name := unix.ByteSliceToString(st.Fstypename[:])
	switch name {
	case "nfs":
		return FSTypeNFS
	case "smbfs", "cifs":
		return FSTypeSMB
	case "osxfuse", "macfuse", "fusefs":
		return FSTypeFUSE
	}
	return FSTypeLocal
}
