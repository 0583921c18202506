package ec

import (
	"fmt"
	"os"
)

// SysfsImagePath is the kernel-exposed memory image of the EC register
// file (requires the ec_sys module).
const SysfsImagePath = "/sys/kernel/debug/ec/ec0/io"

// RegisterFileSize is the size of the EC register file.
const RegisterFileSize = 0x100

// ImageReader provides the EC register file as a single bulk read.
type ImageReader interface {
	// ReadImage returns all RegisterFileSize registers in one read.
	ReadImage() ([]byte, error)
}

type sysfsImage struct {
	path string
}

func NewSysfsImage(path string) ImageReader {
	return &sysfsImage{
		path: path,
	}
}

func (s *sysfsImage) ReadImage() ([]byte, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	buf := make([]byte, RegisterFileSize)
	n, err := file.Read(buf)
	if err != nil {
		return nil, err
	}
	if n != RegisterFileSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortRead, n)
	}
	return buf, nil
}
