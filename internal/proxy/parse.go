package proxy

import (
	"fmt"
	"strings"

	"github.com/nao1215/feedrover/internal/model"
)

// specCleaner removes the quoting and bracket characters that tend to
// survive when a list is pasted into an environment variable.
var specCleaner = strings.NewReplacer(
	`"`, "", "'", "",
	"[", "", "]", "",
	"{", "", "}", "",
	"(", "", ")", "",
)

// ParseList parses a comma-separated proxy list.
// Each entry has the form host:port[:user[:pass]]. Empty entries are skipped.
// The returned records are never claimed and have a zero usage count.
func ParseList(list string) ([]model.ProxyRecord, error) {
	var records []model.ProxyRecord
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(specCleaner.Replace(entry))
		if entry == "" {
			continue
		}
		r, err := ParseSpec(entry)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// ParseSpec parses one host:port[:user[:pass]] entry.
func ParseSpec(spec string) (model.ProxyRecord, error) {
	parts := strings.SplitN(strings.TrimSpace(spec), ":", 4)
	if len(parts) < 2 {
		return model.ProxyRecord{}, fmt.Errorf("%w: %q", ErrInvalidProxySpec, spec)
	}

	host := strings.TrimSpace(parts[0])
	port := strings.TrimSpace(parts[1])
	if host == "" || !validPort(port) {
		return model.ProxyRecord{}, fmt.Errorf("%w: %q", ErrInvalidProxySpec, spec)
	}

	var username, password string
	if len(parts) > 2 {
		username = parts[2]
	}
	if len(parts) > 3 {
		password = parts[3]
	}

	return model.NewProxyRecord(host+":"+port, username, password), nil
}

func validPort(port string) bool {
	if port == "" || len(port) > 5 {
		return false
	}
	n := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return n >= 1 && n <= 65535
}
