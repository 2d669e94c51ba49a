// Copyright (c) 2025 Joshua Skootsky
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
//
// Alternatively, you can license this code under a commercial license.
// Contact: joshua.skootsky@gmail.com

// Package ringcore provides the fixed-size slot types and shared error
// taxonomy used by the lock-free ring-buffer cores in the ring, completion,
// wait, shm, reliable, and facade subpackages.
//
// ringcore itself holds no concurrency primitives: it is the vocabulary
// (slot layouts, sequence arithmetic, error kinds) that every other package
// in this module builds on.
package ringcore
