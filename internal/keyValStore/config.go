package keyValStore

import (
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/disk"
)

func (sc *StoreConfig) checkConfig() error {
	if len(sc.Paths) == 0 {
		return errors.New("no path provided in configuration")
	}

	path := sc.Paths[0] // currently only the first path is utilized
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("path %q does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("error checking path %q: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %q is not a directory", path)
	}

	usage, err := disk.Usage(path)
	if err != nil {
		return fmt.Errorf("error reading disk usage for %q: %w", path, err)
	}

	freeGB := usage.Free / (1024 * 1024 * 1024)
	if int(freeGB) < sc.MinimumFreeSpace {
		return fmt.Errorf("not enough space on %q: %d GB free, %d GB required", path, freeGB, sc.MinimumFreeSpace)
	}

	return nil
}

// logDiskUsage reports the disk situation of the store's data paths once at
// startup.
func (k *KeyValStore) logDiskUsage() {
	for _, path := range k.config.Paths {
		usage, err := disk.Usage(path)
		if err != nil {
			k.log.Warn("error retrieving disk usage stats", "path", path, "error", err)
			continue
		}

		k.log.Info("disk usage",
			"path", path,
			"total_gb", fmt.Sprintf("%.2f", float64(usage.Total)/1e9),
			"used_gb", fmt.Sprintf("%.2f", float64(usage.Used)/1e9),
			"free_gb", fmt.Sprintf("%.2f", float64(usage.Free)/1e9),
		)
	}
}
