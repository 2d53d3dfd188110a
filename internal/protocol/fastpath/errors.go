package fastpath

import "errors"

// ErrUnexpectedFragment indicates a continuation fragment arrived without a
// preceding first fragment.
var ErrUnexpectedFragment = errors.New("unexpected fastpath fragment")
