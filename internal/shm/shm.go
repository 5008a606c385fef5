/*
 * Copyright 2026 VoxPipe Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package shm contains platform-specific helpers for file-backed shared
// memory regions. Callers get a mapped byte slice; all layout and atomic
// access on top of it belongs to the owning package.
package shm

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// Region is a named, size-fixed shared memory mapping backed by a file
// under /dev/shm (or the temp dir when /dev/shm is unavailable).
type Region struct {
	Name    string
	Path    string
	Mem     []byte
	Size    int
	Created bool // true when this process created the backing file

	file *os.File
}

var (
	// ErrRegionInit reports that a region could neither be created nor
	// opened.
	ErrRegionInit = errors.New("shm: region can neither be created nor opened")

	// ErrNoShmSpace reports insufficient free space on /dev/shm.
	ErrNoShmSpace = errors.New("shm: not enough free space on /dev/shm")
)

// regionPath resolves the backing file path for a named region.
func regionPath(name string) string {
	if devShmAvailable() {
		return filepath.Join("/dev/shm", name)
	}
	return filepath.Join(os.TempDir(), name)
}

func devShmAvailable() bool {
	info, err := os.Stat("/dev/shm")
	return err == nil && info.IsDir()
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Exists reports whether the named region's backing file is present,
// without creating or mapping it.
func Exists(name string) bool {
	return pathExists(regionPath(name))
}

// canCreateOnDevShm reports whether /dev/shm has room for size bytes. Paths
// outside /dev/shm are not space-checked.
func canCreateOnDevShm(size uint64, path string) bool {
	if filepath.Dir(path) != "/dev/shm" {
		return true
	}
	stat, err := disk.Usage("/dev/shm")
	if err != nil {
		// If usage cannot be determined, let the ftruncate fail instead.
		return true
	}
	return stat.Free >= size
}

// Unlink removes the region's backing file. Mappings held by other
// processes stay valid until they unmap.
func (r *Region) Unlink() error {
	return os.Remove(r.Path)
}
