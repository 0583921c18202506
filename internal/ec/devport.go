package ec

import (
	"os"
)

// DevPortPath is the character device exposing the legacy I/O port
// space as a seekable file.
const DevPortPath = "/dev/port"

// devPortIO implements PortIO on top of /dev/port, where the file
// offset selects the port.
type devPortIO struct {
	file *os.File
}

// OpenDevPort opens the port space for byte-wide I/O. Requires raw-I/O
// privileges, see the privilege package.
func OpenDevPort() (PortIO, error) {
	file, err := os.OpenFile(DevPortPath, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &devPortIO{file: file}, nil
}

func (d *devPortIO) InB(port uint16) (byte, error) {
	buf := make([]byte, 1)
	_, err := d.file.ReadAt(buf, int64(port))
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *devPortIO) OutB(port uint16, value byte) error {
	_, err := d.file.WriteAt([]byte{value}, int64(port))
	return err
}

func (d *devPortIO) Close() error {
	return d.file.Close()
}
