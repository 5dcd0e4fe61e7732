package loyalty

import (
	"crypto/rand"
	"strings"
)

const (
	codePrefix  = "DAP"
	codeAlpha   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeSuffixN = 6
)

// ReferralCode builds "DAP" + the first three characters of email upper-cased + six random base-36 characters.
func ReferralCode(email string) (string, error) {
	head := []rune(strings.ToUpper(email))
	if len(head) > 3 {
		head = head[:3]
	}
	buf := make([]byte, codeSuffixN)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(codePrefix)
	b.WriteString(string(head))
	for _, c := range buf {
		b.WriteByte(codeAlpha[int(c)%len(codeAlpha)])
	}
	return b.String(), nil
}
