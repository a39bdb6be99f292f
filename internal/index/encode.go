package index

import "encoding/binary"

// key = invChars(8) + 0x00 + slug, so a forward cursor yields the largest
// records first and equal sizes fall back to slug order.
func makeSizeSlugKey(chars int, slug string) []byte {
	if chars < 0 {
		chars = 0
	}
	buf := make([]byte, 8, 8+1+len(slug))
	binary.BigEndian.PutUint64(buf, ^uint64(chars))
	buf = append(buf, 0x00)
	return append(buf, slug...)
}

func slugFromSizeSlugKey(k []byte) string {
	if len(k) < 8+2 || k[8] != 0x00 {
		return ""
	}
	return string(k[9:])
}
