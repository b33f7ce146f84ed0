package amt8000

import (
	"fmt"
)

const (
	panelID  = 0x0000
	clientID = 0x8ffe

	// dst(2) + src(2) + length(2)
	headerSize = 6
)

func makeAuthPayload(pwd string) ([]byte, error) {
	const (
		softwareType    = 0x02
		softwareVersion = 0x10
	)
	contactID, err := contactIDEncode(pwd)
	if err != nil {
		return nil, err
	}
	payload := []byte{softwareType}
	payload = append(payload, contactID...)
	payload = append(payload, softwareVersion)
	return makePayload(cmdAuth, payload), nil
}

// makePayload frames a command: dst, src, length, command, input and the
// trailing checksum. The length counts the command and the input.
func makePayload(cmd int, input []byte) []byte {
	payload := make([]byte, 0, headerSize+2+len(input)+1)
	payload = append(payload, splitIntoOctets(panelID)...)
	payload = append(payload, splitIntoOctets(clientID)...)
	payload = append(payload, splitIntoOctets(len(input)+2)...)
	payload = append(payload, splitIntoOctets(cmd)...)
	payload = append(payload, input...)
	return append(payload, checksum(payload))
}

func splitIntoOctets(n int) []byte {
	return []byte{byte(n / 256), byte(n % 256)}
}

func mergeOctets(buf []byte) int {
	return int(buf[0])*256 + int(buf[1])
}

func checksum(buf []byte) byte {
	var check byte
	for _, n := range buf {
		check ^= n
	}
	return check ^ 0xff
}

// contactIDEncode encodes each password digit in its own octet, zero
// being sent as 0x0a.
func contactIDEncode(pwd string) ([]byte, error) {
	if pwd == "" {
		return nil, fmt.Errorf("%w: empty password", ErrInvalidPassword)
	}
	buf := make([]byte, 0, len(pwd))
	for _, r := range pwd {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: password must be numeric", ErrInvalidPassword)
		}
		digit := byte(r - '0')
		if digit == 0 {
			digit = 0x0a
		}
		buf = append(buf, digit)
	}
	return buf, nil
}

func parseAuthResponse(buf []byte) error {
	cmd, result := parseResponse(buf)
	if cmd != cmdAuth {
		return fmt.Errorf("%w: invalid command: %#04x", ErrAuth, cmd)
	}
	if len(result) == 0 {
		return fmt.Errorf("%w: empty response", ErrAuth)
	}

	switch result[0] {
	case 0:
		return nil
	case 1:
		return ErrInvalidPassword
	default:
		return fmt.Errorf("%w: result %d", ErrAuth, result[0])
	}
}

func parseResponse(buf []byte) (int, []byte) {
	if len(buf) < headerSize+2 {
		return 0, nil
	}
	lenPayload := mergeOctets(buf[4:6]) - 2
	cmd := mergeOctets(buf[6:8])
	if len(buf) < 8+lenPayload || lenPayload < 0 {
		return cmd, nil
	}
	return cmd, buf[8 : 8+lenPayload]
}
