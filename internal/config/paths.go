package config

import (
	"os"
	"path/filepath"
)

func defaultStoreDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".ugcctl"
	}
	return filepath.Join(dir, "ugcctl")
}
