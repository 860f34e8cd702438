// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"code.hybscloud.com/vexec/graph"
	"code.hybscloud.com/vexec/mask"
)

// MaskedOutput pairs an output handle with the mask of elements a caller
// needs from it.
type MaskedOutput struct {
	Output graph.OutputID
	Mask   mask.Mask
}

// Request is an ordered list of MaskedOutputs. All must belong to the
// same Network; the scheduler does not verify this and relies on the
// Network to resolve every output it is given.
type Request []MaskedOutput
