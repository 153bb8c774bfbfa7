// Copyright 2025 Osprey DCS Contributors. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import "github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"

// exitCode maps a returned error's dperr.Kind 1:1 to a process exit
// code. A non-dperr error (flag parsing, file I/O) exits 1, the same
// as KindUnknown.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	switch dperr.KindOf(err) {
	case dperr.KindConfigInvalid:
		return 2
	case dperr.KindNotOpen:
		return 3
	case dperr.KindIllegalState:
		return 4
	case dperr.KindFrameInvalid:
		return 5
	case dperr.KindFrameTooLarge:
		return 6
	case dperr.KindBackPressureFull:
		return 7
	case dperr.KindTimedOut:
		return 8
	case dperr.KindInterrupted:
		return 9
	case dperr.KindTransportError:
		return 10
	case dperr.KindRequestRejected:
		return 11
	case dperr.KindDuplicateSource:
		return 12
	case dperr.KindMissingData:
		return 13
	case dperr.KindInconsistentLength:
		return 14
	case dperr.KindUnsupportedType:
		return 15
	case dperr.KindDomainOverlap:
		return 16
	case dperr.KindSourceMissing:
		return 17
	case dperr.KindTypeConflict:
		return 18
	case dperr.KindShutdownFailed:
		return 19
	default:
		return 1
	}
}
