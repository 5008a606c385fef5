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

//go:build linux || darwin

package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenOrCreate maps the named region, creating the backing file first and
// falling back to opening an existing one when creation loses the race.
// The mapping is always size bytes long regardless of who created it.
func OpenOrCreate(name string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: invalid size %d", ErrRegionInit, size)
	}
	path := regionPath(name)

	created := true
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("%w: create %s: %v", ErrRegionInit, path, err)
		}
		created = false
		f, err = os.OpenFile(path, os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrRegionInit, path, err)
		}
	}

	if !created {
		// A crash between create and truncate leaves a short file; mapping
		// past EOF faults on first access instead of failing here.
		info, serr := f.Stat()
		if serr != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: stat %s: %v", ErrRegionInit, path, serr)
		}
		if info.Size() < int64(size) {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s is %d bytes, need %d", ErrRegionInit, path, info.Size(), size)
		}
	}

	if created {
		if !canCreateOnDevShm(uint64(size), path) {
			_ = f.Close()
			_ = os.Remove(path)
			return nil, fmt.Errorf("%w: %s needs %d bytes", ErrNoShmSpace, path, size)
		}
		if err := f.Truncate(int64(size)); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return nil, fmt.Errorf("%w: truncate %s: %v", ErrRegionInit, path, err)
		}
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		if created {
			_ = os.Remove(path)
		}
		return nil, fmt.Errorf("%w: mmap %s: %v", ErrRegionInit, path, err)
	}

	return &Region{
		Name:    name,
		Path:    path,
		Mem:     mem,
		Size:    size,
		Created: created,
		file:    f,
	}, nil
}

// Close unmaps the region and closes the backing file. The file itself is
// left in place; see Unlink.
func (r *Region) Close() error {
	var firstErr error
	if r.Mem != nil {
		if err := unix.Munmap(r.Mem); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("munmap %s: %w", r.Path, err)
		}
		r.Mem = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.file = nil
	}
	return firstErr
}
