// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf

// Void is used as a value-less type, e.g. for channels used only for
// signaling.
type Void struct{}
