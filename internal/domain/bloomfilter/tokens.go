package bloomfilter

// Bigrams pads value with one space on each side and returns every pair of
// adjacent runes as UTF-8 bytes. An empty value yields the single bigram "  ".
func Bigrams(value string) [][]byte {
	runes := []rune(" " + value + " ")
	out := make([][]byte, 0, len(runes)-1)
	for i := 0; i+1 < len(runes); i++ {
		out = append(out, []byte(string(runes[i:i+2])))
	}
	return out
}
