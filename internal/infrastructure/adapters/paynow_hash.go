package adapters

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// formField is one key/value of a Paynow message. Paynow hashes values in
// the order they appear on the wire, so messages keep their field order.
type formField struct {
	Key   string
	Value string
}

type paynowMessage []formField

// Get returns the first value for key, matched case-insensitively.
func (m paynowMessage) Get(key string) string {
	for _, f := range m {
		if strings.EqualFold(f.Key, key) {
			return f.Value
		}
	}
	return ""
}

// Encode renders the message as an application/x-www-form-urlencoded body.
func (m paynowMessage) Encode() string {
	parts := make([]string, 0, len(m))
	for _, f := range m {
		parts = append(parts, url.QueryEscape(f.Key)+"="+url.QueryEscape(f.Value))
	}
	return strings.Join(parts, "&")
}

// paynowHash is the upper-case hex SHA-512 of every value except "hash",
// in order, followed by the integration key.
func paynowHash(m paynowMessage, integrationKey string) string {
	var b strings.Builder
	for _, f := range m {
		if strings.EqualFold(f.Key, "hash") {
			continue
		}
		b.WriteString(f.Value)
	}
	b.WriteString(integrationKey)

	sum := sha512.Sum512([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// signed returns m with its hash field appended.
func (m paynowMessage) signed(integrationKey string) paynowMessage {
	out := append(paynowMessage{}, m...)
	return append(out, formField{Key: "hash", Value: paynowHash(m, integrationKey)})
}

// verifyPaynowHash checks the hash field of a received message.
func verifyPaynowHash(m paynowMessage, integrationKey string) error {
	got := strings.ToUpper(m.Get("hash"))
	if got == "" {
		return fmt.Errorf("paynow message has no hash")
	}
	want := paynowHash(m, integrationKey)
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return fmt.Errorf("paynow message hash mismatch")
	}
	return nil
}

// parsePaynowMessage decodes a form body, keeping field order.
func parsePaynowMessage(body string) (paynowMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("empty paynow message")
	}

	var m paynowMessage
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("decoding paynow field %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("decoding paynow value for %q: %w", key, err)
		}
		m = append(m, formField{Key: key, Value: value})
	}
	return m, nil
}
