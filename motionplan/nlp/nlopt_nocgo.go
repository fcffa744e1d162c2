//go:build no_cgo

package nlp

import (
	"github.com/pkg/errors"

	"go.viam.com/parkplan/logging"
)

// NloptConfig mimics the type in the cgo compiled code.
type NloptConfig struct {
	Options
}

// NewNlopt is not supported on no_cgo builds.
func NewNlopt(conf NloptConfig, logger logging.Logger) (Solver, error) {
	return nil, errors.Errorf("%s is not supported on this build, use %s", NloptName, AugLagName)
}
