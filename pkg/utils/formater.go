package utils

import "strconv"

const (
	kb = 1024
	mb = kb * 1024
	gb = mb * 1024
	tb = gb * 1024
)

// FmtMemory renders a byte count as a compound human-readable string,
// e.g. "1GB 256MB 12KB 7B".
func FmtMemory(bytes int64) string {
	b := bytes
	if b < 0 {
		b = 0
	}

	units := []struct {
		name string
		size int64
	}{
		{"TB", tb},
		{"GB", gb},
		{"MB", mb},
		{"KB", kb},
	}

	out := ""
	started := false
	for _, u := range units {
		if n := b / u.size; n > 0 || started {
			out += strconv.FormatInt(n, 10) + u.name + " "
			b %= u.size
			started = true
		}
	}
	return out + strconv.FormatInt(b, 10) + "B"
}
