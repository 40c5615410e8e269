package sensor

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/openglyph/gesturelink/internal/monitoring"
)

// MPU-9250 register addresses and values used by the accelerometer path.
const (
	regSmplrtDiv   = 0x19
	regConfig      = 0x1A
	regAccelConfig = 0x1C
	regAccelXoutH  = 0x3B
	regPwrMgmt1    = 0x6B
	regWhoAmI      = 0x75

	whoAmIMPU9250 = 0x71
	whoAmIMPU9255 = 0x73

	spiReadFlag = 0x80
)

// AccelRange selects the accelerometer full-scale range.
type AccelRange byte

const (
	Range2G  AccelRange = 0 // ±2 g, 16384 LSB/g
	Range4G  AccelRange = 1
	Range8G  AccelRange = 2
	Range16G AccelRange = 3
)

// lsbPerG returns the sensitivity for the range.
func (r AccelRange) lsbPerG() float64 {
	return 16384.0 / float64(int(1)<<r)
}

// MPU9250 reads the accelerometer of an MPU-9250/9255 over SPI. Gyro and
// magnetometer stay untouched; the capture protocol only needs 3-axis
// acceleration.
type MPU9250 struct {
	port  spi.PortCloser
	conn  spi.Conn
	scale float64
}

// NewMPU9250 opens the SPI device, verifies the chip identity, wakes it,
// and applies the accelerometer range.
func NewMPU9250(spiDev string, rng AccelRange) (*MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("sensor: periph host init: %w", err)
	}
	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("sensor: open SPI %s: %w", spiDev, err)
	}
	conn, err := port.Connect(physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("sensor: SPI connect: %w", err)
	}

	m := &MPU9250{port: port, conn: conn, scale: rng.lsbPerG()}

	id, err := m.readReg(regWhoAmI)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("sensor: WHO_AM_I read: %w", err)
	}
	if id != whoAmIMPU9250 && id != whoAmIMPU9255 {
		port.Close()
		return nil, fmt.Errorf("sensor: unexpected WHO_AM_I %#x on %s", id, spiDev)
	}

	// Wake from sleep with the PLL clock, default filtering, configured
	// full-scale range.
	for _, w := range []struct{ reg, val byte }{
		{regPwrMgmt1, 0x01},
		{regSmplrtDiv, 0x00},
		{regConfig, 0x03},
		{regAccelConfig, byte(rng) << 3},
	} {
		if err := m.writeReg(w.reg, w.val); err != nil {
			port.Close()
			return nil, fmt.Errorf("sensor: configure register %#x: %w", w.reg, err)
		}
	}

	monitoring.Logf("sensor: MPU-9250 ready on %s (WHO_AM_I %#x, range ±%dg)",
		spiDev, id, 2<<rng)
	return m, nil
}

// Read returns the current acceleration in g.
func (m *MPU9250) Read() (Reading, error) {
	// Burst-read the six accelerometer output registers.
	w := make([]byte, 7)
	r := make([]byte, 7)
	w[0] = regAccelXoutH | spiReadFlag
	if err := m.conn.Tx(w, r); err != nil {
		return Reading{}, fmt.Errorf("sensor: accel read: %w", err)
	}
	raw := r[1:]
	return Reading{
		X: float64(int16(binary.BigEndian.Uint16(raw[0:2]))) / m.scale,
		Y: float64(int16(binary.BigEndian.Uint16(raw[2:4]))) / m.scale,
		Z: float64(int16(binary.BigEndian.Uint16(raw[4:6]))) / m.scale,
	}, nil
}

// Close releases the SPI port.
func (m *MPU9250) Close() error {
	return m.port.Close()
}

func (m *MPU9250) readReg(reg byte) (byte, error) {
	w := []byte{reg | spiReadFlag, 0}
	r := make([]byte, 2)
	if err := m.conn.Tx(w, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (m *MPU9250) writeReg(reg, val byte) error {
	return m.conn.Tx([]byte{reg, val}, nil)
}
