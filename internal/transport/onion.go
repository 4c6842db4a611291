package transport

import (
	"encoding/base32"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Onion address constants.
const (
	// OnionSuffix is the common suffix for all onion addresses.
	OnionSuffix = ".onion"

	// OnionV3Version is the version byte for v3 onion addresses.
	OnionV3Version = 0x03

	// onionV3DecodedLength is pubkey (32) + checksum (2) + version (1).
	onionV3DecodedLength = 35
)

// onionV3Pattern matches v3 onion addresses (56 base32 characters + .onion).
var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

// onionV2Pattern matches deprecated v2 onion addresses.
var onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)

// checksumPrefix is the prefix used in v3 onion address checksum calculation.
var checksumPrefix = []byte(".onion checksum")

// Target describes a parsed base target.
type Target struct {
	// URL is the parsed target.
	URL *url.URL

	// HostPort is the host and port a connection goes to, with the scheme's
	// default port filled in.
	HostPort string

	// Onion is true for .onion hosts.
	Onion bool
}

// ParseTarget parses and validates a base target URL.
//
// The target must be an absolute http or https URL. A .onion host must be a
// valid v3 address.
func ParseTarget(raw string) (*Target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidTarget, raw)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrInvalidTarget, raw)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}

	t := &Target{
		URL:      u,
		HostPort: net.JoinHostPort(u.Hostname(), port),
		Onion:    IsOnionHost(u.Hostname()),
	}

	if t.Onion {
		if err := ValidateOnionHost(u.Hostname()); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// IsOnionHost reports whether host is in the .onion domain.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), OnionSuffix)
}

// ValidateOnionHost checks a .onion host name.
func ValidateOnionHost(host string) error {
	host = strings.ToLower(host)
	if IsValidV3Address(host) {
		return nil
	}
	if onionV2Pattern.MatchString(host) {
		return ErrV2AddressDeprecated
	}
	return fmt.Errorf("%w: %q", ErrInvalidOnionAddress, host)
}

// IsValidV3Address checks format and checksum of a v3 onion address.
// The address must include the ".onion" suffix; case is ignored.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, OnionSuffix)))
	if err != nil || len(decoded) != onionV3DecodedLength {
		return false
	}

	pubkey := decoded[:32]
	checksum := decoded[32:34]
	version := decoded[34]

	if version != OnionV3Version {
		return false
	}

	expected := computeV3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

// computeV3Checksum returns the first 2 bytes of
// SHA3-256(".onion checksum" || pubkey || version).
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)
	return hash[:2]
}

// OnionAddressFromPublicKey computes the v3 onion address of a 32-byte
// ed25519 public key.
func OnionAddressFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", fmt.Errorf("%w: public key must be 32 bytes", ErrInvalidOnionAddress)
	}

	data := make([]byte, onionV3DecodedLength)
	copy(data[:32], pubkey)
	copy(data[32:34], computeV3Checksum(pubkey, OnionV3Version))
	data[34] = OnionV3Version

	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix, nil
}
