package pngopt

import (
	"bytes"
	"fmt"
	"log/slog"
)

// iccColorSpace returns the data color space signature of the ICC profile
// held by an iCCP chunk, such as "GRAY" or "RGB ".
func iccColorSpace(data []byte) (string, error) {
	sep := bytes.IndexByte(data, 0)
	if sep < 1 || sep > 79 || sep+2 > len(data) {
		return "", fmt.Errorf("pngopt: malformed iCCP chunk")
	}
	if method := data[sep+1]; method != 0 {
		return "", fmt.Errorf("pngopt: unknown iCCP compression method %d", method)
	}
	profile, err := inflate(data[sep+2:])
	if err != nil {
		return "", err
	}
	// The color space signature sits at offset 16 of the profile header.
	if len(profile) < 20 {
		return "", fmt.Errorf("pngopt: ICC profile too short (%d bytes)", len(profile))
	}
	return string(profile[16:20]), nil
}

// profileConstraint maps an embedded profile to the color types the output
// may use. A gray profile is only valid for gray color types and any other
// profile only for color ones.
func profileConstraint(iccp []byte) grayConstraint {
	space, err := iccColorSpace(iccp)
	if err != nil {
		slog.Debug("pngopt: unreadable ICC profile, keeping color", "error", err)
		return grayForbidden
	}
	if space == "GRAY" {
		return grayRequired
	}
	return grayForbidden
}
