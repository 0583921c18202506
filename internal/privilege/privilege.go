package privilege

import (
	"errors"
	"fmt"
	"os"

	"github.com/markusressel/clevod/internal/ec"
)

var ErrDenied = errors.New("raw I/O privileges denied")

// CheckRawIO probes whether this process may perform raw I/O to the
// EC ports. The daemon must refuse to start when this fails.
func CheckRawIO() error {
	file, err := os.OpenFile(ec.DevPortPath, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %v", ErrDenied, err)
		}
		return err
	}
	_ = file.Close()
	return nil
}

// Help returns actionable operator instructions for granting raw I/O
// access.
func Help() string {
	return `
Privilege elevation failed. Try one of these methods:

1. Capabilities (Recommended):
   sudo setcap cap_sys_rawio+ep $(which clevod)

2. Systemd Service:
   sudo cp systemd/clevod.service /etc/systemd/system/
   sudo systemctl enable clevod.service

3. Run as root:
   sudo clevod
`
}
