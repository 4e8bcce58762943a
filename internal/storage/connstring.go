package storage

import (
	"fmt"
	"strings"
)

// ParseConnectionString splits "Key=Value;Key=Value" into a map keyed by
// lower-cased key. Values may contain '='.
func ParseConnectionString(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("storage: malformed connection string segment %q", part)
		}
		out[strings.ToLower(k)] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("storage: empty connection string")
	}
	return out, nil
}

// ParseO3ConnectionString reads Endpoint, AccessKey, SecretKey and Region.
func ParseO3ConnectionString(s string) (O3Options, error) {
	kv, err := ParseConnectionString(s)
	if err != nil {
		return O3Options{}, err
	}
	opts := O3Options{
		Endpoint:  kv["endpoint"],
		AccessKey: kv["accesskey"],
		SecretKey: kv["secretkey"],
		Region:    kv["region"],
	}
	if opts.Endpoint == "" {
		return O3Options{}, fmt.Errorf("storage: o3 connection string needs Endpoint")
	}
	return opts, nil
}
