package jsonvalue

import (
	"strconv"
	"strings"
	"sync"
)

// PathBuilder builds document locations such as "identifier[0].system".
// Builders are pooled; call Release when done.
type PathBuilder struct {
	buf []byte
}

var pathBuilderPool = sync.Pool{
	New: func() any {
		return &PathBuilder{
			buf: make([]byte, 0, 128),
		}
	},
}

// AcquirePathBuilder gets a PathBuilder from the pool.
func AcquirePathBuilder() *PathBuilder {
	pb := pathBuilderPool.Get().(*PathBuilder)
	pb.Reset()
	return pb
}

// Release returns the PathBuilder to the pool.
func (b *PathBuilder) Release() {
	if b == nil {
		return
	}
	if cap(b.buf) <= 4096 {
		pathBuilderPool.Put(b)
	}
}

// Reset clears the buffer without deallocating.
func (b *PathBuilder) Reset() {
	b.buf = b.buf[:0]
}

// Len returns the current length of the path.
func (b *PathBuilder) Len() int {
	return len(b.buf)
}

// Truncate shrinks the path back to n bytes.
func (b *PathBuilder) Truncate(n int) {
	if n >= 0 && n <= len(b.buf) {
		b.buf = b.buf[:n]
	}
}

// WriteString appends raw text to the path.
func (b *PathBuilder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// AppendKey appends an object key with a leading dot if the path is not empty.
func (b *PathBuilder) AppendKey(key string) {
	if len(b.buf) > 0 {
		b.buf = append(b.buf, '.')
	}
	b.buf = append(b.buf, key...)
}

// AppendIndex appends an array index in brackets [n].
func (b *PathBuilder) AppendIndex(index int) {
	b.buf = append(b.buf, '[')
	b.buf = strconv.AppendInt(b.buf, int64(index), 10)
	b.buf = append(b.buf, ']')
}

// String returns the built path.
func (b *PathBuilder) String() string {
	return string(b.buf)
}

// AppendKey joins base and an object key.
func AppendKey(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

// AppendIndex joins base and an array index.
func AppendIndex(base string, index int) string {
	pb := AcquirePathBuilder()
	defer pb.Release()
	pb.WriteString(base)
	pb.AppendIndex(index)
	return pb.String()
}

// PointerToPath converts an RFC 6901 JSON pointer into a document location.
// Purely numeric segments become indexes: "/identifier/0/system" becomes
// "identifier[0].system". The root pointer "" becomes "".
func PointerToPath(pointer string) string {
	if pointer == "" || pointer == "/" {
		return ""
	}

	pb := AcquirePathBuilder()
	defer pb.Release()

	for _, seg := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		if n, err := strconv.Atoi(seg); err == nil && isDigits(seg) {
			pb.AppendIndex(n)
			continue
		}
		pb.AppendKey(seg)
	}
	return pb.String()
}

// AtPointer resolves an RFC 6901 JSON pointer against root.
func AtPointer(root any, pointer string) (any, bool) {
	if pointer == "" {
		return root, true
	}
	cur := root
	for _, seg := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			n, err := strconv.Atoi(seg)
			if err != nil || !isDigits(seg) || n >= len(v) {
				return nil, false
			}
			cur = v[n]
		default:
			return nil, false
		}
	}
	return cur, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
