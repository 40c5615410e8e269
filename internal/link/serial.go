package link

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerialHost opens device at baud and runs the host side of the
// protocol over it.
func OpenSerialHost(device string, baud int) (*StreamHostLink, error) {
	port, err := openSerial(device, baud)
	if err != nil {
		return nil, err
	}
	return NewStreamHostLink(port), nil
}

// OpenSerialNode opens device at baud and runs the node side of the
// protocol over it.
func OpenSerialNode(device string, baud int) (*StreamNodeLink, error) {
	port, err := openSerial(device, baud)
	if err != nil {
		return nil, err
	}
	return NewStreamNodeLink(port), nil
}

func openSerial(device string, baud int) (serial.Port, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("link: open %s: %w", device, err)
	}
	return port, nil
}
