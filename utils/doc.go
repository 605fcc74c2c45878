// SPDX-License-Identifier: EPL-2.0

// Package utils holds per-sample conversions shared by the PCM readers and
// the resampler.
package utils
