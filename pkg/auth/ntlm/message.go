// Package ntlm implements NTLM challenge-response authentication over
// HTTP against Active Directory, per [MS-NLMP].
//
// The handshake spans two round-trips: the client's NEGOTIATE (Type 1)
// message is answered with a server CHALLENGE (Type 2), and the final
// AUTHENTICATE (Type 3) message yields the DOMAIN\user identity that is
// verified against a domain controller. Successful identities are cached
// per client in a session store so follow-up requests skip the handshake.
package ntlm

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
)

// MessageType identifies the three messages in the NTLM handshake.
// [MS-NLMP] Section 2.2.1
type MessageType uint32

const (
	Negotiate    MessageType = 1
	Challenge    MessageType = 2
	Authenticate MessageType = 3
)

// signature is the 8-byte prefix of every NTLM message: "NTLMSSP\0".
var signature = []byte{'N', 'T', 'L', 'M', 'S', 'S', 'P', 0}

// Common header layout. [MS-NLMP] Section 2.2.1
const (
	messageTypeOffset = 8
	headerSize        = 12
)

// NEGOTIATE (Type 1) field offsets. [MS-NLMP] Section 2.2.1.1
const (
	negFlagsOffset     = 12
	negDomainLenOffset = 16
	negDomainOffOffset = 20
	negBaseSize        = 32
)

// CHALLENGE (Type 2) field offsets. [MS-NLMP] Section 2.2.1.2
const (
	chalTargetNameLenOffset = 12
	chalTargetNameMaxOffset = 14
	chalTargetNameOffOffset = 16
	chalFlagsOffset         = 20
	chalServerChalOffset    = 24
	chalTargetInfoLenOffset = 40
	chalTargetInfoMaxOffset = 42
	chalTargetInfoOffOffset = 44
	chalBaseSize            = 56
)

// AUTHENTICATE (Type 3) field offsets. [MS-NLMP] Section 2.2.1.3
const (
	authLmLenOffset     = 12
	authLmOffOffset     = 16
	authNtLenOffset     = 20
	authNtOffOffset     = 24
	authDomainLenOffset = 28
	authDomainOffOffset = 32
	authUserLenOffset   = 36
	authUserOffOffset   = 40
	authWsLenOffset     = 44
	authWsOffOffset     = 48
	authFlagsOffset     = 60
	authBaseSize        = 64
)

const serverChallengeSize = 8

// NegotiateFlag controls handshake behavior. [MS-NLMP] Section 2.2.2.5
type NegotiateFlag uint32

const (
	FlagUnicode          NegotiateFlag = 0x00000001
	FlagOEM              NegotiateFlag = 0x00000002
	FlagRequestTarget    NegotiateFlag = 0x00000004
	FlagNTLM             NegotiateFlag = 0x00000200
	FlagAnonymous        NegotiateFlag = 0x00000800
	FlagDomainSupplied   NegotiateFlag = 0x00001000
	FlagAlwaysSign       NegotiateFlag = 0x00008000
	FlagTargetTypeDomain NegotiateFlag = 0x00010000
	FlagExtendedSecurity NegotiateFlag = 0x00080000
	FlagTargetInfo       NegotiateFlag = 0x00800000
	Flag128              NegotiateFlag = 0x20000000
	Flag56               NegotiateFlag = 0x80000000
)

// IsMessage reports whether buf starts with the NTLMSSP signature and has
// a complete header.
func IsMessage(buf []byte) bool {
	return len(buf) >= headerSize && bytes.Equal(buf[:8], signature)
}

// TypeOf returns the message type, or 0 for a short or foreign buffer.
func TypeOf(buf []byte) MessageType {
	if !IsMessage(buf) {
		return 0
	}
	return MessageType(binary.LittleEndian.Uint32(buf[messageTypeOffset : messageTypeOffset+4]))
}

// NegotiateMessage contains the fields of a Type 1 message the server
// cares about: the flags, and the domain the client asked for (present
// only when FlagDomainSupplied is set).
type NegotiateMessage struct {
	Flags  NegotiateFlag
	Domain string
}

// ParseNegotiate parses a Type 1 (NEGOTIATE) message.
func ParseNegotiate(buf []byte) (*NegotiateMessage, error) {
	if len(buf) < headerSize {
		return nil, ErrMessageTooShort
	}
	if !IsMessage(buf) {
		return nil, ErrInvalidSignature
	}
	if TypeOf(buf) != Negotiate {
		return nil, ErrWrongMessageType
	}

	msg := &NegotiateMessage{}
	// Minimal Type 1 messages may stop after the header; the domain field
	// block is optional.
	if len(buf) < negBaseSize {
		return msg, nil
	}
	msg.Flags = NegotiateFlag(binary.LittleEndian.Uint32(buf[negFlagsOffset : negFlagsOffset+4]))

	if msg.Flags&FlagDomainSupplied != 0 {
		dLen := binary.LittleEndian.Uint16(buf[negDomainLenOffset : negDomainLenOffset+2])
		dOff := binary.LittleEndian.Uint32(buf[negDomainOffOffset : negDomainOffOffset+4])
		if dLen > 0 && int(dOff)+int(dLen) <= len(buf) {
			// Type 1 domain is always OEM-encoded.
			msg.Domain = decodeField(buf[dOff:dOff+uint32(dLen)], false)
		}
	}
	return msg, nil
}

// BuildChallenge creates a Type 2 (CHALLENGE) message with a fresh random
// server challenge. targetName is the NetBIOS name of the domain that will
// verify the final response. The challenge bytes are returned alongside
// the message so the negotiator can keep them for the pending handshake.
func BuildChallenge(targetName string) (msg []byte, challenge []byte) {
	challenge = make([]byte, serverChallengeSize)
	_, _ = rand.Read(challenge)

	target := encodeUTF16LE(targetName)

	flags := FlagUnicode |
		FlagRequestTarget |
		FlagNTLM |
		FlagAlwaysSign |
		FlagTargetTypeDomain |
		FlagExtendedSecurity |
		FlagTargetInfo |
		Flag128 |
		Flag56

	targetInfo := buildTargetInfo(targetName)

	targetOff := chalBaseSize
	infoOff := targetOff + len(target)
	msg = make([]byte, infoOff+len(targetInfo))

	copy(msg[:8], signature)
	binary.LittleEndian.PutUint32(msg[messageTypeOffset:], uint32(Challenge))

	binary.LittleEndian.PutUint16(msg[chalTargetNameLenOffset:], uint16(len(target)))
	binary.LittleEndian.PutUint16(msg[chalTargetNameMaxOffset:], uint16(len(target)))
	binary.LittleEndian.PutUint32(msg[chalTargetNameOffOffset:], uint32(targetOff))

	binary.LittleEndian.PutUint32(msg[chalFlagsOffset:], uint32(flags))
	copy(msg[chalServerChalOffset:chalServerChalOffset+serverChallengeSize], challenge)

	binary.LittleEndian.PutUint16(msg[chalTargetInfoLenOffset:], uint16(len(targetInfo)))
	binary.LittleEndian.PutUint16(msg[chalTargetInfoMaxOffset:], uint16(len(targetInfo)))
	binary.LittleEndian.PutUint32(msg[chalTargetInfoOffOffset:], uint32(infoOff))

	copy(msg[targetOff:], target)
	copy(msg[infoOff:], targetInfo)

	return msg, challenge
}

// buildTargetInfo builds the AV_PAIR list for the challenge: the NetBIOS
// domain name followed by the mandatory EOL terminator.
// [MS-NLMP] Section 2.2.2.1
func buildTargetInfo(domain string) []byte {
	var out []byte
	if domain != "" {
		v := encodeUTF16LE(domain)
		pair := make([]byte, 4+len(v))
		binary.LittleEndian.PutUint16(pair[0:], 0x0002) // MsvAvNbDomainName
		binary.LittleEndian.PutUint16(pair[2:], uint16(len(v)))
		copy(pair[4:], v)
		out = append(out, pair...)
	}
	return append(out, 0x00, 0x00, 0x00, 0x00) // MsvAvEOL
}

// AuthenticateMessage contains the parsed fields of a Type 3 message.
type AuthenticateMessage struct {
	LmChallengeResponse []byte
	NtChallengeResponse []byte

	// Domain and Username identify the account being asserted. Domain may
	// be empty when the client expects the server's default domain.
	Domain   string
	Username string

	// Workstation is the client machine name, kept for audit logging.
	Workstation string

	Flags NegotiateFlag

	// IsAnonymous is set for credential-free authentication attempts,
	// which this server rejects.
	IsAnonymous bool
}

// ParseAuthenticate parses a Type 3 (AUTHENTICATE) message.
func ParseAuthenticate(buf []byte) (*AuthenticateMessage, error) {
	if len(buf) < authBaseSize {
		return nil, ErrMessageTooShort
	}
	if !IsMessage(buf) {
		return nil, ErrInvalidSignature
	}
	if TypeOf(buf) != Authenticate {
		return nil, ErrWrongMessageType
	}

	msg := &AuthenticateMessage{}
	msg.Flags = NegotiateFlag(binary.LittleEndian.Uint32(buf[authFlagsOffset : authFlagsOffset+4]))
	msg.IsAnonymous = msg.Flags&FlagAnonymous != 0
	unicode := msg.Flags&FlagUnicode != 0

	msg.LmChallengeResponse = extractBytes(buf, authLmLenOffset, authLmOffOffset)
	msg.NtChallengeResponse = extractBytes(buf, authNtLenOffset, authNtOffOffset)
	msg.Domain = decodeField(extractBytes(buf, authDomainLenOffset, authDomainOffOffset), unicode)
	msg.Username = decodeField(extractBytes(buf, authUserLenOffset, authUserOffOffset), unicode)
	msg.Workstation = decodeField(extractBytes(buf, authWsLenOffset, authWsOffOffset), unicode)

	return msg, nil
}

// extractBytes copies one length/offset-addressed payload field, returning
// nil when the field is absent or points outside the buffer.
func extractBytes(buf []byte, lenOff, offOff int) []byte {
	n := binary.LittleEndian.Uint16(buf[lenOff : lenOff+2])
	off := binary.LittleEndian.Uint32(buf[offOff : offOff+4])
	if n == 0 || int(off)+int(n) > len(buf) {
		return nil
	}
	out := make([]byte, n)
	copy(out, buf[off:off+uint32(n)])
	return out
}

// decodeField decodes a payload string from UTF-16LE or OEM encoding.
func decodeField(buf []byte, unicode bool) string {
	if !unicode {
		return string(buf)
	}
	if len(buf)%2 != 0 {
		buf = buf[:len(buf)-1]
	}
	runes := make([]rune, len(buf)/2)
	for i := 0; i < len(buf); i += 2 {
		runes[i/2] = rune(binary.LittleEndian.Uint16(buf[i : i+2]))
	}
	return string(runes)
}

// encodeUTF16LE encodes an ASCII domain/host name as UTF-16LE.
func encodeUTF16LE(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = binary.LittleEndian.AppendUint16(out, uint16(r))
	}
	return out
}

// Error is a typed string error for message parsing failures.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrMessageTooShort  Error = "ntlm: message too short"
	ErrInvalidSignature Error = "ntlm: invalid signature"
	ErrWrongMessageType Error = "ntlm: wrong message type"
)
