package importer

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// MarkerFile identifies the root of a mounted controller.
const MarkerFile = "vcontrol.id"

// RootProvider locates the controller root. ok is false when no controller
// is connected.
type RootProvider func() (root string, ok bool)

// StaticRoot always returns path, provided it is a directory.
func StaticRoot(path string) RootProvider {
	return func() (string, bool) {
		if path == "" || !isDir(path) {
			return "", false
		}
		return path, true
	}
}

// HardcodeRoot reads the root path from file. The file holds a single path,
// surrounding whitespace is ignored.
func HardcodeRoot(file string) RootProvider {
	return func() (string, bool) {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", false
		}
		root := strings.TrimSpace(string(b))
		if root == "" {
			return "", false
		}
		return root, true
	}
}

// MarkerRoot returns path when it contains the marker file.
func MarkerRoot(path, marker string) RootProvider {
	return func() (string, bool) {
		if path == "" {
			return "", false
		}
		if _, err := os.Stat(filepath.Join(path, marker)); err != nil {
			return "", false
		}
		return path, true
	}
}

// VolumeRoot returns the first child of parent that carries the marker,
// e.g. parent "/Volumes" on macOS or "/media/<user>" on Linux desktops.
func VolumeRoot(parent, marker string) RootProvider {
	return func() (string, bool) {
		entries, err := os.ReadDir(parent)
		if err != nil {
			return "", false
		}
		for _, e := range entries {
			if root, ok := MarkerRoot(filepath.Join(parent, e.Name()), marker)(); ok {
				return root, true
			}
		}
		return "", false
	}
}

// MountRoot scans the mount points listed in an mtab style file for the
// marker.
func MountRoot(mtab, marker string) RootProvider {
	return func() (string, bool) {
		f, err := os.Open(mtab)
		if err != nil {
			return "", false
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			cols := strings.Fields(scanner.Text())
			if len(cols) < 2 {
				continue
			}
			mountpoint := strings.ReplaceAll(cols[1], `\040`, " ")
			if root, ok := MarkerRoot(mountpoint, marker)(); ok {
				return root, true
			}
		}
		return "", false
	}
}

// FirstRoot tries providers in order.
func FirstRoot(providers ...RootProvider) RootProvider {
	return func() (string, bool) {
		for _, p := range providers {
			if p == nil {
				continue
			}
			if root, ok := p(); ok {
				return root, true
			}
		}
		return "", false
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
