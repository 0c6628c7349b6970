//go:build !linux

package store

import "os"

// Access and change times are not portable; modification time stands in
// for both.
func statTimes(path string) (entryTimes, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return entryTimes{}, err
	}
	return entryTimes{access: info.ModTime(), change: info.ModTime()}, nil
}
