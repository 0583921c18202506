package ec

import (
	"errors"
	"fmt"
	"math"

	"github.com/markusressel/clevod/internal/ui"
)

// EC registers can be read through the port-level protocol or via the
// sysfs register image:
//
//	1. modprobe ec_sys
//	2. od -Ax -t x1 /sys/kernel/debug/ec/ec0/io
const (
	RegCpuTemp  = 0x07
	RegGpuTemp  = 0xCD
	RegFanDuty  = 0xCE
	RegFanRpmHi = 0xD0
	RegFanRpmLo = 0xD1
)

// rpmDividend over the 16-bit divisor register pair yields the fan RPM.
const rpmDividend = 2156220

var ErrInvalidDuty = errors.New("fan duty out of range")

// Readings is one set of derived EC sensor values. Raw register bytes
// never leave this package.
type Readings struct {
	CpuTemp int
	GpuTemp int
	FanDuty int
	FanRpm  int
}

// FanDutyFromRaw converts a raw duty register value (0-255) to percent.
func FanDutyFromRaw(raw byte) int {
	return int(float64(raw) / 255.0 * 100.0)
}

// FanRpmFromRaw converts the RPM divisor register pair to RPM.
// The high byte lives at the lower register address.
func FanRpmFromRaw(hi byte, lo byte) int {
	divisor := int(hi)<<8 | int(lo)
	if divisor <= 0 {
		return 0
	}
	return rpmDividend / divisor
}

// rawFromFanDuty converts a duty percentage to the raw register value.
func rawFromFanDuty(pct int) byte {
	return byte(math.Round(float64(pct) / 100.0 * 255.0))
}

// Device is the sensor/actuator view of the EC. Reads prefer the bulk
// register image when available and fall back to the port-level
// protocol; a single image failure latches the port path for the
// remainder of the process.
type Device struct {
	transport Transport
	image     ImageReader
	useImage  bool
}

func NewDevice(transport Transport, image ImageReader) *Device {
	d := &Device{
		transport: transport,
		image:     image,
	}
	d.useImage = d.probeImage()
	return d
}

func (d *Device) probeImage() bool {
	if d.image == nil {
		return false
	}
	if _, err := d.readImage(); err != nil {
		ui.Debug("EC register image not usable, using port-level reads: %v", err)
		return false
	}
	return true
}

func (d *Device) readImage() ([]byte, error) {
	buf, err := d.image.ReadImage()
	if err != nil {
		return nil, err
	}
	if len(buf) != RegisterFileSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortRead, len(buf))
	}
	return buf, nil
}

// Probe verifies that the EC responds to the port-level protocol.
func (d *Device) Probe() error {
	_, err := d.transport.ReadRegister(RegCpuTemp)
	return err
}

func (d *Device) CpuTemp() (int, error) {
	value, err := d.transport.ReadRegister(RegCpuTemp)
	return int(value), err
}

func (d *Device) GpuTemp() (int, error) {
	value, err := d.transport.ReadRegister(RegGpuTemp)
	return int(value), err
}

func (d *Device) FanDuty() (int, error) {
	raw, err := d.transport.ReadRegister(RegFanDuty)
	if err != nil {
		return 0, err
	}
	return FanDutyFromRaw(raw), nil
}

func (d *Device) FanRpm() (int, error) {
	hi, err := d.transport.ReadRegister(RegFanRpmHi)
	if err != nil {
		return 0, err
	}
	lo, err := d.transport.ReadRegister(RegFanRpmLo)
	if err != nil {
		return 0, err
	}
	return FanRpmFromRaw(hi, lo), nil
}

// ReadAll reads all sensor values, in one syscall when the register
// image is available.
func (d *Device) ReadAll() (Readings, error) {
	if d.useImage {
		buf, err := d.readImage()
		if err == nil {
			return Readings{
				CpuTemp: int(buf[RegCpuTemp]),
				GpuTemp: int(buf[RegGpuTemp]),
				FanDuty: FanDutyFromRaw(buf[RegFanDuty]),
				FanRpm:  FanRpmFromRaw(buf[RegFanRpmHi], buf[RegFanRpmLo]),
			}, nil
		}
		// latched for the remainder of the process
		d.useImage = false
		ui.Warning("EC register image read failed, falling back to port-level reads: %v", err)
	}

	var readings Readings
	var err error
	if readings.CpuTemp, err = d.CpuTemp(); err != nil {
		return readings, err
	}
	if readings.GpuTemp, err = d.GpuTemp(); err != nil {
		return readings, err
	}
	if readings.FanDuty, err = d.FanDuty(); err != nil {
		return readings, err
	}
	if readings.FanRpm, err = d.FanRpm(); err != nil {
		return readings, err
	}
	return readings, nil
}

// WriteFanDuty commands the fan to the given duty cycle percentage.
func (d *Device) WriteFanDuty(pct int) error {
	if pct < 1 || pct > 100 {
		return ErrInvalidDuty
	}
	return d.transport.WriteRegister(CmdWriteFanDuty, PortFanDuty, rawFromFanDuty(pct))
}
