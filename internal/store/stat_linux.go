//go:build linux

package store

import (
	"time"

	"golang.org/x/sys/unix"
)

func statTimes(path string) (entryTimes, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return entryTimes{}, err
	}
	return entryTimes{
		access: time.Unix(st.Atim.Unix()),
		change: time.Unix(st.Ctim.Unix()),
	}, nil
}
