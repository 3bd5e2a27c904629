// Package system inspects the host the tool runs on.
package system

import (
	"fmt"
	"strings"

	"github.com/openforge/reposync/internal/shell"
	"github.com/openforge/reposync/internal/utils/logger"
)

// DetectArchitecture asks the host for its machine architecture, used as
// the default when no --arch flag is given.
func DetectArchitecture() (string, error) {
	log := logger.Logger()

	result, err := shell.Run([]string{"uname", "-m"}, shell.Options{})
	if err != nil {
		return "", fmt.Errorf("detecting host architecture: %w", err)
	}

	arch := strings.TrimSpace(string(shell.StripEscapes(result.Output)))
	if arch == "" {
		return "", fmt.Errorf("detecting host architecture: empty uname output")
	}
	log.Debugf("detected host architecture %s", arch)
	return arch, nil
}
