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

//go:build windows

package shm

import "fmt"

// OpenOrCreate is not implemented on Windows. The transport targets a
// producer/consumer pair running on a unix host.
func OpenOrCreate(name string, size int) (*Region, error) {
	return nil, fmt.Errorf("%w: shared memory regions are not supported on windows", ErrRegionInit)
}

// Close is a no-op on Windows.
func (r *Region) Close() error { return nil }
