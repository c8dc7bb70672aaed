package vp8l

import "math"

// Histogram collects per-symbol statistics of a token stream. The
// literal plane carries the green values, the length prefix codes and
// the color-cache indices; red, blue and alpha get their own planes.
type Histogram struct {
	Literal  []int // NumLiteralCodes + NumLengthCodes + (1 << cacheBits)
	Red      [256]int
	Blue     [256]int
	Alpha    [256]int
	Distance [NumDistanceCodes]int

	cacheBits int
}

// NumCodes returns the size of the literal plane for cacheBits.
func NumCodes(cacheBits int) int {
	n := NumLiteralCodes + NumLengthCodes
	if cacheBits > 0 {
		n += 1 << uint(cacheBits)
	}
	return n
}

// NewHistogram allocates a histogram sized for cacheBits.
func NewHistogram(cacheBits int) *Histogram {
	return &Histogram{
		Literal:   make([]int, NumCodes(cacheBits)),
		cacheBits: cacheBits,
	}
}

// Clear zeroes all counters.
func (h *Histogram) Clear() {
	for i := range h.Literal {
		h.Literal[i] = 0
	}
	for i := 0; i < 256; i++ {
		h.Red[i] = 0
		h.Blue[i] = 0
		h.Alpha[i] = 0
	}
	for i := range h.Distance {
		h.Distance[i] = 0
	}
}

// AddToken counts one token.
func (h *Histogram) AddToken(t Token) {
	switch {
	case t.IsLiteral():
		h.Alpha[t.Component(3)]++
		h.Red[t.Component(2)]++
		h.Literal[t.Component(1)]++
		h.Blue[t.Component(0)]++
	case t.IsCacheIdx():
		h.Literal[NumLiteralCodes+NumLengthCodes+t.CacheIndex()]++
	default:
		code, _, _ := PrefixEncode(t.Length())
		h.Literal[NumLiteralCodes+code]++
		code, _, _ = PrefixEncode(t.Distance())
		h.Distance[code]++
	}
}

// AddRefs counts a whole stream.
func (h *Histogram) AddRefs(refs *Refs) {
	for _, t := range refs.Tokens() {
		h.AddToken(t)
	}
}

// bitsEntropy is the Shannon estimate of coding counts with one code,
// floored by what a Huffman code can actually achieve on tiny
// alphabets.
func bitsEntropy(counts []int) float64 {
	var (
		retval   float64
		sum      int
		nonzeros int
		maxVal   int
	)
	for _, c := range counts {
		if c == 0 {
			continue
		}
		sum += c
		nonzeros++
		retval += float64(c) * math.Log(float64(c))
		if maxVal < c {
			maxVal = c
		}
	}
	retval -= float64(sum) * math.Log(float64(sum))
	retval *= -math.Log2E
	mix := 0.627
	if nonzeros < 5 {
		switch nonzeros {
		case 0, 1:
			return 0
		case 2:
			return 0.99*float64(sum) + 0.01*retval
		case 3:
			mix = 0.95
		default:
			mix = 0.7
		}
	}
	minLimit := float64(2*sum - maxVal)
	minLimit = mix*minLimit + (1.0-mix)*retval
	if retval < minLimit {
		return minLimit
	}
	return retval
}

// EstimateBits approximates the coded size of the histogrammed stream:
// symbol entropy plus the extra bits carried by length and distance
// prefix codes.
func (h *Histogram) EstimateBits() float64 {
	retval := bitsEntropy(h.Literal) +
		bitsEntropy(h.Red[:]) +
		bitsEntropy(h.Blue[:]) +
		bitsEntropy(h.Alpha[:]) +
		bitsEntropy(h.Distance[:])
	for i := 2; i < NumLengthCodes-2; i++ {
		retval += float64(i>>1) * float64(h.Literal[NumLiteralCodes+i+2])
	}
	for i := 2; i < NumDistanceCodes-2; i++ {
		retval += float64(i>>1) * float64(h.Distance[i+2])
	}
	return retval
}

// convertCountsToBitEstimates turns population counts into per-symbol
// bit costs: log2(sum) - log2(count). Degenerate one-symbol planes cost
// nothing.
func convertCountsToBitEstimates(counts []int, out []float64) {
	sum := 0
	nonzeros := 0
	for _, c := range counts {
		sum += c
		if c > 0 {
			nonzeros++
		}
	}
	if nonzeros <= 1 {
		for i := range out {
			out[i] = 0
		}
		return
	}
	log2sum := math.Log2(float64(sum))
	for i, c := range counts {
		if c == 0 {
			out[i] = log2sum
		} else {
			out[i] = log2sum - math.Log2(float64(c))
		}
	}
}
