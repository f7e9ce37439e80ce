//go:build !windows

package comhost

import (
	"context"
	"errors"
	"runtime"

	"github.com/sensiblebit/cadeskit/host"
)

// Loader reports that COM is unavailable on this platform.
func Loader() host.Loader {
	return func(context.Context) (any, error) {
		return nil, errors.New("CAdESCOM requires Windows, running on " + runtime.GOOS)
	}
}
