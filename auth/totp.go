package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/users"
)

const (
	totpPeriod = 30 * time.Second
	totpDigits = 6
	// totpSkew allows one step of clock drift either side.
	totpSkew = 1
)

// TOTPVerifier validates RFC 6238 time-based one-time codes against
// the user's enrolled secret.
type TOTPVerifier struct {
	// Now is injectable for testing; defaults to time.Now.
	Now func() time.Time
}

var _ CodeVerifier = TOTPVerifier{}

func (v TOTPVerifier) Verify(user *users.User, code string) bool {
	if user.MFASecret == "" || len(code) != totpDigits {
		return false
	}
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(
		strings.ToUpper(strings.ReplaceAll(user.MFASecret, " ", "")))
	if err != nil {
		return false
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	counter := uint64(now().Unix() / int64(totpPeriod.Seconds()))
	for delta := -int64(totpSkew); delta <= totpSkew; delta++ {
		expected := hotp(secret, counter+uint64(delta))
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

// hotp computes the RFC 4226 truncated HMAC-SHA1 code for a counter.
func hotp(secret []byte, counter uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", value%1000000)
}
