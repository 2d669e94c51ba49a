// Copyright (c) 2025 Joshua Skootsky
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
//
// Alternatively, you can license this code under a commercial license.
// Contact: joshua.skootsky@gmail.com

package ring

import "golang.org/x/sys/cpu"

// cacheLinePad is the padding length used to keep independently-updated
// cursors on separate cache lines, following the teacher's pad-field
// technique but sized from the portable ecosystem constant instead of a
// hardcoded literal.
const cacheLinePad = cpu.CacheLinePadSize

// pad is cache_line_size minus the 8 bytes of the uint64 it follows. It is
// embedded after every standalone atomic cursor in this package so that two
// adjacent cursors, or a cursor and the start of the slot array, never fall
// on the same cache line.
type pad [cacheLinePad - 8]byte
